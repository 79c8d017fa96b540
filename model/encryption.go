package model

// Padding is the 32-byte standard security handler password padding
// string (PDF 32000-1, Algorithm 2, step a).
var Padding = [32]byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// UserPermissions is the /P flag field of an encryption dictionary.
type UserPermissions uint32

const (
	PermissionChangeEncryption UserPermissions = 1 << (2 - 1)
	PermissionPrint            UserPermissions = 1 << (3 - 1)
	PermissionModify           UserPermissions = 1 << (4 - 1)
	PermissionCopy             UserPermissions = 1 << (5 - 1)
	PermissionAdd              UserPermissions = 1 << (6 - 1)
	PermissionFill             UserPermissions = 1 << (9 - 1)
	PermissionExtract          UserPermissions = 1 << (10 - 1)
	PermissionAssemble         UserPermissions = 1 << (11 - 1)
	PermissionPrintDigital     UserPermissions = 1 << (12 - 1)
)

// EncryptionAlgorithm is the /V entry of an encryption dictionary.
type EncryptionAlgorithm uint8

const (
	_                  EncryptionAlgorithm = iota
	Key40                                  // 1: 40-bit RC4, algorithm defined by this spec
	KeyExt                                 // 2: RC4 or AES with a key length > 40 bits, given by /Length
	_                                      // 3: unpublished algorithm, never produced by conforming writers
	KeySecurityHandler                     // 4: crypt filters defined in /CF, selected by /StmF and /StrF
	KeyAES256                              // 5: AES-256, PDF 2.0 / ISO 32000-2 Algorithm 2.A
)

// CryptFilterMethod is the /CFM entry of a crypt filter dictionary.
type CryptFilterMethod Name

const (
	CFMNone   CryptFilterMethod = "None"
	CFMV2     CryptFilterMethod = "V2"     // RC4
	CFMAESV2  CryptFilterMethod = "AESV2"  // AES-128, CBC
	CFMAESV3  CryptFilterMethod = "AESV3"  // AES-256, CBC
)

// CryptFilter is one entry of an encryption dictionary's /CF map.
type CryptFilter struct {
	CFM                 CryptFilterMethod
	Length              int // key length in bytes; 0 means "use the handler default"
	DontEncryptMetadata bool
}

// Encrypt is the parsed content of a document's /Encrypt dictionary.
// It is purely data: deriving keys and decrypting bytes is the job of
// the crypt package, which takes an Encrypt plus the file ID and
// password and produces a usable handler.
type Encrypt struct {
	Filter    Name // handler name, "Standard" or something else (e.g. a Public-Key handler)
	SubFilter Name
	V         EncryptionAlgorithm
	Length    uint8 // key length in bytes, 5-16, default 5
	CF        map[Name]CryptFilter
	StmF      Name // crypt filter used for streams, default "Identity"
	StrF      Name // crypt filter used for strings, default "Identity"
	P         UserPermissions

	// Standard security handler fields (present when Filter == "Standard").
	R                   uint8 // revision: 2, 3, 4 or 6
	O                   []byte
	U                   []byte
	OE                  []byte // R=5/6 only
	UE                  []byte // R=5/6 only
	Perms               []byte // R=5/6 only, /Perms, 16 bytes
	DontEncryptMetadata bool

	// Recipients holds the /Recipients byte strings of a Public-Key
	// handler. Such documents are recognized but not decryptable by
	// this module; see crypt.ErrPublicKeyUnsupported.
	Recipients [][]byte
}

// IsStandardHandler reports whether this encryption dictionary uses the
// Standard security handler, the only one this module can decrypt.
func (e Encrypt) IsStandardHandler() bool {
	return e.Filter == "Standard" || e.Filter == ""
}

func (e Encrypt) Clone() Encrypt {
	out := e
	if e.CF != nil {
		out.CF = make(map[Name]CryptFilter, len(e.CF))
		for k, v := range e.CF {
			out.CF[k] = v
		}
	}
	out.O = append([]byte(nil), e.O...)
	out.U = append([]byte(nil), e.U...)
	out.OE = append([]byte(nil), e.OE...)
	out.UE = append([]byte(nil), e.UE...)
	out.Perms = append([]byte(nil), e.Perms...)
	return out
}
