// Package auth contiene DTOs para los endpoints de login y sesión.
package auth

import "time"

// TokenRequest body de POST /auth/{app}/token.
type TokenRequest struct {
	Code string `json:"code"`
}

// TokenPair es lo que el broker entrega al cliente vía cookies.
type TokenPair struct {
	AccessToken  string
	AccessTTL    time.Duration
	RefreshToken string
	RefreshTTL   time.Duration
	UserID       int64
}

// StatusResponse respuesta de logout.
type StatusResponse struct {
	Status string `json:"status"`
}
