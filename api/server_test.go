package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/floristeria-backend/pkg/config"
)

func TestNewServerPortResolution(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Port: "8081"}}

	t.Setenv("PORT", "")
	assert.Equal(t, ":8081", NewServer(cfg, http.NotFoundHandler()).Addr)

	t.Setenv("PORT", "9000")
	srv := NewServer(cfg, http.NotFoundHandler())
	assert.Equal(t, ":9000", srv.Addr)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
}
