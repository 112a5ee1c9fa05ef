package domain

type MFAEnrollResponse struct {
	Secret  string // Base32 encoded secret for TOTP
	QRCode  string // otpauth:// URL for QR code generation
	Issuer  string // Issuer name (e.g., service name)
	Account string // Account name (e.g., username)
}
