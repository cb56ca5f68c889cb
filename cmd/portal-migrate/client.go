package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mitchellh/go-homedir"
	"github.com/toothbrush/portal-migrate/apim"
	"github.com/toothbrush/portal-migrate/migrate"
	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

func serviceConfig() (migrate.Config, error) {
	folder, err := homedir.Expand(Folder)
	if err != nil {
		return migrate.Config{}, fmt.Errorf("portal-migrate: unable to expand homedir: %w", err)
	}
	cfg := migrate.Config{
		SubscriptionID:    SubscriptionID,
		ResourceGroupName: ResourceGroupName,
		ServiceName:       ServiceName,
		SnapshotFolder:    folder,
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func tokenProvider() (apim.TokenProvider, error) {
	if AccessToken != "" {
		debugLog("using access token from --access-token\n")
		return apim.StaticToken(AccessToken), nil
	}

	cred, err := apim.DefaultCredential()
	if err != nil {
		return nil, err
	}
	if RefreshToken {
		debugLog("using refreshing default Azure credential\n")
		return apim.NewRefreshingToken(cred), nil
	}
	debugLog("using default Azure credential, token fetched once\n")
	return apim.NewOnceToken(cred), nil
}

// newAPI builds a management API client.  The returned stop func must be called once the client is
// no longer needed, so that a VCR cassette gets saved.
func newAPI(ctx context.Context, cfg migrate.Config) (*apim.API, func() error, error) {
	tokens, err := tokenProvider()
	if err != nil {
		return nil, nil, err
	}

	api, err := apim.NewAPI(ctx, cfg.Service(), tokens)
	if err != nil {
		return nil, nil, err
	}
	stop := func() error { return nil }

	if WithVCR {
		stop, err = attachVCR(api, "fixtures/"+cfg.ServiceName)
		if err != nil {
			return nil, nil, err
		}
	}

	return api, stop, nil
}

// attachVCR routes api's reads through a go-vcr cassette.  Only GETs are recorded and replayed:
// writes must always reach the service, and the media SAS URL (a POST) must never be saved.
func attachVCR(api *apim.API, cassetteName string) (func() error, error) {
	opts := &recorder.Options{
		CassetteName:       cassetteName,
		Mode:               recorder.ModeReplayWithNewEpisodes,
		SkipRequestLatency: true,
		RealTransport:      http.DefaultTransport,
	}
	r, err := recorder.NewWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("portal-migrate: failed to start VCR: %w", err)
	}

	r.AddPassthrough(func(req *http.Request) bool {
		return req.Method != http.MethodGet
	})

	// Never commit bearer tokens to a cassette.
	hook := func(i *cassette.Interaction) error {
		delete(i.Request.Headers, "Authorization")
		return nil
	}
	r.AddHook(hook, recorder.AfterCaptureHook)
	r.SetReplayableInteractions(true)

	api.Client = r.GetDefaultClient()
	return r.Stop, nil
}
