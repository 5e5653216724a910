package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Fredxxo/campo/internal/platform/httpclient"
	"github.com/Fredxxo/campo/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("token verifier not configured")
	ErrUnauthorized  = errors.New("token rejected")
	ErrUpstream      = errors.New("auth upstream error")
)

// Config del verificador remoto de sesiones.
// BaseURL y APIKey vienen de env vars en quien lo instancia.
type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: header donde va la API key. Vacío => "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

// Verifier implementa auth.AuthVerifier contra el servicio de sesiones.
// El rol viene en los claims remotos; acá solo se valida que sea conocido.
type Verifier struct {
	client       *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func NewVerifier(cfg Config) (*Verifier, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	key := strings.TrimSpace(cfg.APIKey)
	if base == "" || key == "" {
		return nil, ErrNotConfigured
	}

	client, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	header := strings.TrimSpace(cfg.APIKeyHeader)
	if header == "" {
		header = "X-Api-Key"
	}

	return &Verifier{
		client:       client,
		apiKey:       key,
		apiKeyHeader: header,
	}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	var out struct {
		UID         string `json:"uid"`
		Email       string `json:"email"`
		Role        string `json:"role"`
		DisplayName string `json:"display_name"`
	}

	headers := map[string]string{
		v.apiKeyHeader:  v.apiKey,
		"Authorization": "Bearer " + token,
	}

	err := v.client.DoJSON(ctx, http.MethodPost, "/v1/sessions/verify", headers, map[string]string{"token": token}, &out)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden {
				return auth.Claims{}, ErrUnauthorized
			}
			return auth.Claims{}, fmt.Errorf("%w: status=%d", ErrUpstream, httpErr.StatusCode)
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out.UID = strings.TrimSpace(out.UID)
	if out.UID == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing uid", ErrUpstream)
	}

	role := strings.TrimSpace(out.Role)
	if role != "" && !auth.ValidRole(role) {
		// Rol desconocido se degrada a "sin permisos" en vez de romper el login.
		role = ""
	}

	return auth.Claims{
		UserID: out.UID,
		Email:  strings.TrimSpace(out.Email),
		Role:   role,
	}, nil
}
