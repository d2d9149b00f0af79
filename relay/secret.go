package relay

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// secretMatches compara o segredo do request (header ou ?secret=) com o esperado
// em tempo constante. expected vazio desliga a verificação.
func secretMatches(r *http.Request, header, expected string) bool {
	if expected == "" {
		return true
	}
	got := strings.TrimSpace(r.Header.Get(header))
	if got == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			got = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	if got == "" {
		got = r.URL.Query().Get("secret")
	}
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
