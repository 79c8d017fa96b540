package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdoc/pdf/model"
)

// buildRC4Encrypt computes a valid /O and /U pair for a given owner and
// user password at revision 3, mirroring Algorithm 3.3/3.4 independently
// of the package under test, so New can be exercised end to end.
func buildRC4Encrypt(t *testing.T, ownerPw, userPw string, fileID []byte, keyLen int) model.Encrypt {
	t.Helper()

	pad := func(pw string) []byte {
		out := make([]byte, 32)
		copy(out, append([]byte(pw), model.Padding[:]...))
		return out
	}

	// Algorithm 3.3: /O
	ownerHashKey := md5.Sum(pad(ownerPw))
	for i := 0; i < 50; i++ {
		ownerHashKey = md5.Sum(ownerHashKey[:keyLen])
	}
	rc4Key := ownerHashKey[:keyLen]
	o := pad(userPw)
	for i := 0; i < 20; i++ {
		roundKey := make([]byte, keyLen)
		for j, b := range rc4Key {
			roundKey[j] = b ^ byte(i)
		}
		c, _ := rc4.NewCipher(roundKey)
		c.XORKeyStream(o, o)
	}

	// Algorithm 3.2: file key from the user password
	buf := append([]byte(nil), pad(userPw)...)
	buf = append(buf, o...)
	buf = append(buf, byte(0xFF), byte(0xFF), byte(0xFF), byte(0xFF)) // /P = -1 (all permissions)
	buf = append(buf, fileID...)
	fileKeyHash := md5.Sum(buf)
	for i := 0; i < 50; i++ {
		fileKeyHash = md5.Sum(fileKeyHash[:keyLen])
	}
	fileKey := fileKeyHash[:keyLen]

	// Algorithm 3.5: /U (revision >= 3)
	h := md5.Sum(append(append([]byte(nil), model.Padding[:]...), fileID...))
	c, _ := rc4.NewCipher(fileKey)
	c.XORKeyStream(h[:], h[:])
	for i := 1; i <= 19; i++ {
		roundKey := make([]byte, keyLen)
		for j, b := range fileKey {
			roundKey[j] = b ^ byte(i)
		}
		cc, _ := rc4.NewCipher(roundKey)
		cc.XORKeyStream(h[:], h[:])
	}
	u := make([]byte, 32)
	copy(u, h[:16])

	return model.Encrypt{
		Filter: "Standard",
		V:      model.KeyExt,
		R:      3,
		Length: uint8(keyLen),
		P:      model.UserPermissions(0xFFFFFFFF),
		O:      o,
		U:      u,
	}
}

func TestNewAuthenticatesUserPassword(t *testing.T) {
	fileID := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	enc := buildRC4Encrypt(t, "ownerSecret", "", fileID, 16)

	h, err := New(enc, fileID, "")
	require.NoError(t, err)
	assert.Equal(t, methodRC4, h.method)
}

func TestNewFailsWrongPassword(t *testing.T) {
	fileID := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	enc := buildRC4Encrypt(t, "ownerSecret", "userSecret", fileID, 16)

	_, err := New(enc, fileID, "wrongGuess")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDecryptStreamRC4RoundTrip(t *testing.T) {
	fileID := []byte{9, 9, 9, 9}
	enc := buildRC4Encrypt(t, "owner", "", fileID, 16)

	h, err := New(enc, fileID, "")
	require.NoError(t, err)

	ref := model.Reference{Number: 7, Generation: 0}
	key := objectKey(h.key, ref, false)
	c, _ := rc4.NewCipher(key)
	plain := []byte("hello, encrypted stream")
	cipherBytes := make([]byte, len(plain))
	c.XORKeyStream(cipherBytes, plain)

	got, err := h.DecryptStream(cipherBytes, ref)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestAES256RoundTrip(t *testing.T) {
	fileKey := make([]byte, 32)
	for i := range fileKey {
		fileKey[i] = byte(i)
	}
	userPw := ""
	validationSaltBytes := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	keySaltBytes := []byte{9, 10, 11, 12, 13, 14, 15, 16}

	hashInput := append(append([]byte(nil), []byte(userPw)...), validationSaltBytes...)
	validation := sha256.Sum256(hashInput)

	userHash := make([]byte, 48)
	copy(userHash[:32], validation[:])
	copy(userHash[32:40], validationSaltBytes)
	copy(userHash[40:], keySaltBytes)

	keyHashInput := append(append([]byte(nil), []byte(userPw)...), keySaltBytes...)
	intermediateKey := sha256.Sum256(keyHashInput)

	block, err := aes.NewCipher(intermediateKey[:])
	require.NoError(t, err)
	var iv [16]byte
	ue := make([]byte, 32)
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ue, fileKey)

	enc := model.Encrypt{
		Filter: "Standard",
		V:      model.KeyAES256,
		R:      6,
		O:      make([]byte, 48),
		U:      userHash,
		UE:     ue,
	}

	h, err := New(enc, nil, userPw)
	require.NoError(t, err)
	assert.Equal(t, fileKey, h.key)
	assert.Equal(t, methodAESCBC256, h.method)
}
