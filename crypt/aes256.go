package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"

	"github.com/vellumdoc/pdf/model"
)

// validationSalt and keySalt split the last 16 bytes of a 48-byte O/U
// entry (32-byte hash, 8-byte validation salt, 8-byte key salt), per
// ISO 32000-2 7.6.4.3.3/7.6.4.3.4, Algorithms 8 and 9.
func validationSalt(hash []byte) []byte { return hash[32:40] }
func keySalt(hash []byte) []byte        { return hash[40:] }

// authOwnerPassword implements owner password authentication and
// file-key recovery with the single SHA-256 hash of revision 5. The
// iterated hash of revision 6 is not computed, so an R=6 password
// authenticates only when its hash matches this single-round form.
func authOwnerPassword(password string, ownerHash, userHash []byte, ownerE []byte) ([]byte, bool) {
	pw := truncatePassword(password)

	s := sha256.Sum256(append(append([]byte(nil), pw...), append(validationSalt(ownerHash), userHash...)...))
	if !bytes.HasPrefix(ownerHash, s[:]) {
		return nil, false
	}

	key := sha256.Sum256(append(append([]byte(nil), pw...), append(keySalt(ownerHash), userHash...)...))
	return aesCBCNoPad(key[:], ownerE)
}

// authUserPassword implements user password authentication and
// file-key recovery with the single SHA-256 hash of revision 5; as in
// authOwnerPassword, the iterated hash of revision 6 is not computed.
func authUserPassword(password string, userHash []byte, userE []byte) ([]byte, bool) {
	pw := truncatePassword(password)

	s := sha256.Sum256(append(append([]byte(nil), pw...), validationSalt(userHash)...))
	if !bytes.HasPrefix(userHash, s[:]) {
		return nil, false
	}

	key := sha256.Sum256(append(append([]byte(nil), pw...), keySalt(userHash)...))
	return aesCBCNoPad(key[:], userE)
}

func truncatePassword(password string) []byte {
	pw := []byte(password)
	if len(pw) > 127 {
		pw = pw[:127]
	}
	return pw
}

// aesCBCNoPad decrypts a 32-byte encrypted key with a zero IV and no
// padding removal, as Algorithms 8/9 require.
func aesCBCNoPad(key, ciphertext []byte) ([]byte, bool) {
	block, err := aes.NewCipher(key)
	if err != nil || len(ciphertext) != 32 {
		return nil, false
	}
	var iv [aes.BlockSize]byte
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(out, ciphertext)
	return out, true
}

// validatePermissions decrypts /Perms with the recovered file key and
// checks it against /P, per Algorithm 2.A step (d)/(e).
func validatePermissions(fileKey []byte, perms []byte, p model.UserPermissions) bool {
	if len(perms) != 16 {
		return false
	}
	block, err := aes.NewCipher(fileKey)
	if err != nil {
		return false
	}
	buf := append([]byte(nil), perms...)
	block.Decrypt(buf, buf) // ECB, single block, no IV
	if string(buf[9:12]) != "adb" {
		return false
	}
	return int32(binary.LittleEndian.Uint32(buf[:4])) == int32(p)
}

// newAES256Handler authenticates password against an R=5/6 (AES-256)
// encryption dictionary, trying it first as the user password and then
// as the owner password.
func newAES256Handler(enc model.Encrypt, password string) (*Handler, error) {
	if len(enc.O) < 48 || len(enc.U) < 48 {
		return nil, model.NewError(model.InvalidPdf, "AES-256: /O or /U shorter than 48 bytes")
	}
	ownerHash, userHash := enc.O[:48], enc.U[:48]

	var key []byte
	var ok, isOwner bool
	if key, ok = authUserPassword(password, userHash, enc.UE); !ok {
		key, ok = authOwnerPassword(password, ownerHash, userHash, enc.OE)
		isOwner = ok
	}
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	// /Perms is optional in some producers' output; only validate when present.
	if len(enc.Perms) == 16 && !validatePermissions(key, enc.Perms, enc.P) {
		return nil, ErrAuthenticationFailed
	}

	cfm := cfmOf(enc, enc.StmF)
	return &Handler{
		key:             key,
		method:          methodFromCFM(cfm),
		encryptMetadata: !enc.DontEncryptMetadata,
		isOwner:         isOwner,
	}, nil
}
