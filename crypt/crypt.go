// Package crypt implements the PDF Standard security handler: deriving
// a file encryption key from a password (or the empty password) and
// using it to decrypt strings and streams, for RC4-40, RC4-128,
// AES-128 and AES-256.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vellumdoc/pdf/model"
)

// ErrPublicKeyUnsupported is returned by New when the document uses a
// Public-Key security handler rather than the Standard one. Such
// documents are recognized, not decrypted.
var ErrPublicKeyUnsupported = errors.New("crypt: Public-Key security handler is not supported")

// ErrAuthenticationFailed is returned when neither the owner nor user
// password (including the empty password) authenticates.
var ErrAuthenticationFailed = errors.New("crypt: could not authenticate with the given password")

// method identifies the concrete cipher used for string/stream bodies.
type method uint8

const (
	methodRC4 method = iota
	methodAESCBC128
	methodAESCBC256
)

// Handler decrypts the strings and streams of one opened document. It
// is built once via New and then reused for every object.
type Handler struct {
	key             []byte // file encryption key
	method          method
	encryptMetadata bool
	isOwner         bool
}

// New authenticates password (the empty string is a valid password,
// and is tried automatically when it is the document's actual user or
// owner password) against enc, and returns a Handler able to decrypt
// the document's strings and streams.
func New(enc model.Encrypt, fileID []byte, password string) (*Handler, error) {
	if !enc.IsStandardHandler() {
		return nil, ErrPublicKeyUnsupported
	}

	if enc.R >= 5 {
		return newAES256Handler(enc, password)
	}
	return newLegacyHandler(enc, fileID, password)
}

func cfmOf(enc model.Encrypt, filterName model.Name) model.CryptFilterMethod {
	if enc.V < model.KeySecurityHandler {
		return model.CFMV2 // RC4, V1/V2
	}
	cf, ok := enc.CF[filterName]
	if !ok {
		if enc.V == model.KeyAES256 {
			return model.CFMAESV3 // V5 defines only AES-256, even without an explicit /CF entry
		}
		return model.CFMNone
	}
	return cf.CFM
}

func methodFromCFM(cfm model.CryptFilterMethod) method {
	switch cfm {
	case model.CFMAESV2:
		return methodAESCBC128
	case model.CFMAESV3:
		return methodAESCBC256
	default:
		return methodRC4
	}
}

func newLegacyHandler(enc model.Encrypt, fileID []byte, password string) (*Handler, error) {
	keyLength := 5
	if enc.R >= 3 && enc.Length != 0 {
		keyLength = int(enc.Length) // already normalized to bytes by the parser
	}

	pad := func(pw string) [32]byte {
		var out [32]byte
		copy(out[:], append([]byte(pw), model.Padding[:]...)[:32])
		return out
	}

	tryKey := func(userPad [32]byte) []byte {
		buf := append([]byte(nil), userPad[:]...)
		buf = append(buf, enc.O...)
		var pbuf [4]byte
		binary.LittleEndian.PutUint32(pbuf[:], uint32(enc.P))
		buf = append(buf, pbuf[:]...)
		buf = append(buf, fileID...)
		if enc.R >= 4 && enc.DontEncryptMetadata {
			buf = append(buf, 0xff, 0xff, 0xff, 0xff)
		}
		sum := md5.Sum(buf)
		if enc.R >= 3 {
			for i := 0; i < 50; i++ {
				sum = md5.Sum(sum[:keyLength])
			}
		}
		return append([]byte(nil), sum[:keyLength]...)
	}

	checkUserKey := func(key []byte) bool {
		expected := generateUserHash(enc.R, key, fileID)
		return bytes.Equal(expected[:], padOrTrim(enc.U, 32))
	}

	// User password attempt (empty password first, if none given).
	userPad := pad(password)
	key := tryKey(userPad)
	isOwner := false
	ok := checkUserKey(key)

	if !ok {
		// Owner password attempt: recover the user password it encodes,
		// then re-derive the file key from that (Algorithm 7 / 3.7).
		ownerKeyLen := 5
		if enc.R >= 3 {
			ownerKeyLen = keyLength
		}
		ownerPad := pad(password)
		tmp := md5.Sum(ownerPad[:])
		if enc.R >= 3 {
			for i := 0; i < 50; i++ {
				tmp = md5.Sum(tmp[:])
			}
		}
		rc4Key := tmp[:ownerKeyLen]

		recoveredUserPw := padOrTrim(enc.O, 32)
		if enc.R == 2 {
			c, _ := rc4.NewCipher(rc4Key)
			c.XORKeyStream(recoveredUserPw, recoveredUserPw)
		} else {
			for i := 19; i >= 0; i-- {
				roundKey := make([]byte, len(rc4Key))
				for j, b := range rc4Key {
					roundKey[j] = b ^ byte(i)
				}
				c, _ := rc4.NewCipher(roundKey)
				c.XORKeyStream(recoveredUserPw, recoveredUserPw)
			}
		}

		candidateKey := tryKey(padOrTrim32(recoveredUserPw))
		if checkUserKey(candidateKey) {
			key, ok, isOwner = candidateKey, true, true
		}
	}

	if !ok {
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

func padOrTrim(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

func padOrTrim32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}

// generateUserHash reproduces the /U entry so we can check a candidate
// file key against it (Algorithm 4/5, 3.4/3.5 in the ISO spec).
func generateUserHash(revision uint8, key []byte, fileID []byte) [32]byte {
	var v [32]byte
	if revision == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(v[:], model.Padding[:])
		return v
	}
	buf := append([]byte(nil), model.Padding[:]...)
	buf = append(buf, fileID...)
	hash := md5.Sum(buf)
	c, _ := rc4.NewCipher(key)
	c.XORKeyStream(hash[:], hash[:])
	xor19(hash[:], key)
	copy(v[:16], hash[:])
	return v
}

func xor19(data []byte, baseKey []byte) {
	for i := 1; i <= 19; i++ {
		roundKey := make([]byte, len(baseKey))
		for j, b := range baseKey {
			roundKey[j] = b ^ byte(i)
		}
		c, _ := rc4.NewCipher(roundKey)
		c.XORKeyStream(data, data)
	}
}

func objectKey(baseKey []byte, ref model.Reference, aesCipher bool) []byte {
	var nbuf [4]byte
	binary.LittleEndian.PutUint32(nbuf[:], uint32(ref.Number))
	var gbuf [4]byte
	binary.LittleEndian.PutUint32(gbuf[:], uint32(ref.Generation))
	b := append(append([]byte(nil), baseKey...), nbuf[0], nbuf[1], nbuf[2], gbuf[0], gbuf[1])
	if aesCipher {
		b = append(b, 0x73, 0x41, 0x6C, 0x54) // "sAlT"
	}
	sum := md5.Sum(b)
	size := len(baseKey) + 5
	if size > 16 {
		size = 16
	}
	return sum[:size]
}

// DecryptStream decrypts the content of a stream belonging to ref. It
// must not be called for streams carrying an explicit Identity /Crypt
// filter (see model.Stream.BypassCrypt), which are never encrypted.
func (h *Handler) DecryptStream(content []byte, ref model.Reference) ([]byte, error) {
	return h.decrypt(content, ref)
}

// DecryptString decrypts the bytes of a string literal or hex literal
// belonging to ref.
func (h *Handler) DecryptString(s string, ref model.Reference) (string, error) {
	out, err := h.decrypt([]byte(s), ref)
	return string(out), err
}

func (h *Handler) decrypt(data []byte, ref model.Reference) ([]byte, error) {
	switch h.method {
	case methodRC4:
		key := objectKey(h.key, ref, false)
		out := make([]byte, len(data))
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		c.XORKeyStream(out, data)
		return out, nil
	case methodAESCBC128:
		return decryptAESCBC(objectKey(h.key, ref, true), data)
	case methodAESCBC256:
		return decryptAESCBC(h.key, data)
	default:
		return data, nil
	}
}

// decryptAESCBC decrypts data whose first 16 bytes are the IV, as laid
// out by both AESV2 and AESV3 crypt filters (7.6.2).
func decryptAESCBC(key, data []byte) ([]byte, error) {
	if len(data) < aes.BlockSize {
		return nil, fmt.Errorf("crypt: AES ciphertext shorter than one block")
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	if len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("crypt: AES ciphertext not block-aligned")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	return unpadPKCS7(out), nil
}

func unpadPKCS7(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	n := int(data[len(data)-1])
	if n <= 0 || n > aes.BlockSize || n > len(data) {
		return data // not validly padded; hand back as-is rather than guess
	}
	return data[:len(data)-n]
}
