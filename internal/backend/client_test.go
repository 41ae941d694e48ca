package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/labstock/labstock/internal/platform/httpx"
)

type material struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestClientListForwardsToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.Equal(t, "/materials", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]material{{ID: 1, Name: "Beaker"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", 0)
	var out []material
	ctx := ContextWithToken(context.Background(), "secret")
	require.NoError(t, client.List(ctx, "/materials", &out))
	require.Equal(t, []material{{ID: 1, Name: "Beaker"}}, out)
	require.Equal(t, "Bearer secret", auth)
}

func TestClientNotFoundWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 0).List(context.Background(), "borrows", &[]material{})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Status)
	require.Equal(t, "missing", statusErr.Body)
}

func TestClientCreateJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body material
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Pipette", body.Name)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL, 0).Create(context.Background(), "materials", material{Name: "Pipette"}))
}

func TestClientUpdateMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		var body material
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("body")), &body))
		require.Equal(t, 7, body.ID)
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		f, err := files[1].Open()
		require.NoError(t, err)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "second", string(data))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 0).Update(context.Background(), "materials/7", material{ID: 7},
		File{Name: "a.txt", Data: []byte("first")},
		File{Name: "b.txt", Data: []byte("second")},
	)
	require.NoError(t, err)
}

func TestClientSingleFileUsesFileField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Len(t, r.MultipartForm.File["file"], 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 0).Create(context.Background(), "incidents", map[string]string{"title": "spill"},
		File{Name: "photo.png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
}

func TestClientValidationStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 0).Create(context.Background(), "materials", material{})
	require.ErrorIs(t, err, httpx.ErrValidation)
}
