package httpapi

// Config defines HTTP terminal settings.
type Config struct {
	Addr         string
	ClientCookie string
	BaseURL      string
	BasePath     string
}
