package cryptography

// Cipher hides the symmetric encryption used for biometric payloads so the
// algorithm can be swapped without touching storage or integrity logic.
type Cipher interface {
	Encrypt(plaintext []byte, key []byte) ([]byte, error)
	Decrypt(ciphertext []byte, key []byte) ([]byte, error)
}

type Hasher interface {
	HashString(data string, salt []byte) ([]byte, error)
	VerifyHashData(hash string, data string) bool
}
