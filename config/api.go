package config

import "errors"

// APIConfig defines the HTTP status server. An empty Addr disables it.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token protects /api/decisions when set.
	Token string `json:"token"`
}

// Validate rejects a token without a listen address.
func (c APIConfig) Validate() error {
	if c.Token != "" && c.Addr == "" {
		return errors.New("api.token set but api.addr is empty")
	}
	return nil
}
