package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, map[string]string{"id": "abc"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Empty(t, resp.Message)
	require.Empty(t, resp.Code)
}

func TestWriteError(t *testing.T) {
	t.Run("api error renders its own envelope", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, ErrTokenBlacklisted)

		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.False(t, resp.Success)
		require.Equal(t, CodeTokenBlacklisted, resp.Code)
		require.Equal(t, http.StatusUnauthorized, resp.HTTPCode)
	})

	t.Run("wrapped api error unwraps", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.Join(errors.New("outer"), NotFound("no such user")))

		require.Equal(t, http.StatusNotFound, rec.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, CodeNotFound, resp.Code)
		require.Equal(t, "no such user", resp.Message)
	})

	t.Run("unknown error collapses to internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("sqlite: disk I/O error"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, CodeInternal, resp.Code)
		require.NotContains(t, resp.Message, "sqlite")
	})
}

func TestRateLimitCodeIsBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrTooManyRequests)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, CodeTooManyRequests, resp.Code)
}
