package security

import (
	"crypto/subtle"

	"github.com/7amooo12/SamaStylestore/configs"
)

// Client is a service caller (payment webhook relay, analytics) allowed to
// request a bearer token.
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"payments.confirm"}
	Enabled bool
}

type Clients map[string]Client

func ClientsFromConfig(cfg configs.Config) Clients {
	out := make(Clients, len(cfg.Security.Clients))
	for _, c := range cfg.Security.Clients {
		out[c.ID] = Client{ID: c.ID, Secret: c.Secret, Perms: append([]string(nil), c.Perms...), Enabled: c.Enabled}
	}
	return out
}

// Authenticate returns the enabled client whose secret matches.
func (cs Clients) Authenticate(id, secret string) (Client, bool) {
	cl, ok := cs[id]
	if !ok || !cl.Enabled {
		return Client{}, false
	}
	if subtle.ConstantTimeCompare([]byte(cl.Secret), []byte(secret)) != 1 {
		return Client{}, false
	}
	return cl, true
}
