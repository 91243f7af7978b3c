// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/kinderfleet/kinderfleet/ci"
	"github.com/kinderfleet/kinderfleet/helper/testlog"
	"github.com/kinderfleet/kinderfleet/structs"
)

func TestNominatimGeocoder_Lookup(t *testing.T) {
	ci.Parallel(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		must.Eq(t, "/search", r.URL.Path)
		must.Eq(t, "400 Broad St, Seattle", r.URL.Query().Get("q"))
		must.Eq(t, "json", r.URL.Query().Get("format"))
		must.Eq(t, "1", r.URL.Query().Get("limit"))
		must.Eq(t, "ops@example.com", r.URL.Query().Get("email"))

		_, _ = w.Write([]byte(`[{"lat": "47.6205", "lon": "-122.3493"}]`))
	}))
	defer srv.Close()

	geocoder, err := NewNominatimGeocoder(&NominatimConfig{
		Address: srv.URL,
		Email:   "ops@example.com",
		Logger:  testlog.HCLogger(t),
	})
	must.NoError(t, err)

	coords, err := geocoder.Lookup(context.Background(), "400 Broad St, Seattle")
	must.NoError(t, err)
	must.NotNil(t, coords)
	must.Eq(t, 47.6205, coords.Lat)
	must.Eq(t, -122.3493, coords.Lon)
}

func TestNominatimGeocoder_Lookup_NoCandidates(t *testing.T) {
	ci.Parallel(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	geocoder, err := NewNominatimGeocoder(&NominatimConfig{Address: srv.URL, Logger: testlog.HCLogger(t)})
	must.NoError(t, err)

	coords, err := geocoder.Lookup(context.Background(), "nowhere at all")
	must.NoError(t, err)
	must.Nil(t, coords)
}

func TestNominatimGeocoder_Lookup_Errors(t *testing.T) {
	ci.Parallel(t)

	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http_error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "bad_latitude",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{"lat": "north", "lon": "-122.3"}]`))
			},
		},
		{
			name: "garbage_body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"unexpected": "shape"}`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			geocoder, err := NewNominatimGeocoder(&NominatimConfig{Address: srv.URL, Logger: testlog.HCLogger(t)})
			must.NoError(t, err)

			_, err = geocoder.Lookup(context.Background(), "somewhere")
			must.ErrorIs(t, err, structs.ErrPortFailure)
		})
	}
}

func TestNewNominatimGeocoder_MissingAddress(t *testing.T) {
	ci.Parallel(t)

	_, err := NewNominatimGeocoder(&NominatimConfig{})
	must.Error(t, err)
}
