package auth

// Claims is the validated identity the core receives from an upstream
// authorizer. The core never validates API keys itself, so this carries
// only what a request handler needs: the owning user id the gateway
// already vouched for.
type Claims struct {
	Subject string
}
