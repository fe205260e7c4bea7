package types

// Account is the locally stored verification material for a user.
//
// EncryptedPrivateKey is the user's PKCS#8 RSA private key sealed with the
// user key as an EncString; PublicKey is the matching SPKI DER.
type Account struct {
	UserID              UserID `json:"user_id"`
	PublicKey           []byte `json:"public_key"`
	EncryptedPrivateKey string `json:"encrypted_private_key"`
	CreatedUTC          int64  `json:"created_utc"`
}
