package kernel

// SiteID identifies the first-party site an identity was established for.
type SiteID uint32

// KeyID identifies a single entry in a key directory (a master key or a
// site key). The codec embeds the KeyID alongside the ciphertext it
// protects so the decrypting side knows which key to fetch.
type KeyID uint32
