package integration

// MaskSecret keeps the first and last four characters of a credential.
// Values of eight characters or fewer are fully masked.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "***"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}
