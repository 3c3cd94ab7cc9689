// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"

	"github.com/mardi4nfdi/importer/internal/importer"
	"github.com/mardi4nfdi/importer/internal/localstore"
	"github.com/mardi4nfdi/importer/internal/mapping"
	"github.com/mardi4nfdi/importer/internal/wikidata"
)

// stores holds the open databases of one command run.
type stores struct {
	local   *localstore.Store
	mapping *mapping.SQLStore
}

func openStores(ctx context.Context) (*stores, error) {
	local, err := localstore.NewStore(cfg.LocalStore, localstore.WithLogger(logger.Named("localstore")))
	if err != nil {
		return nil, err
	}
	m, err := mapping.Open(ctx, cfg.Mapping, mapping.WithLogger(logger.Named("mapping")))
	if err != nil {
		local.Close()
		return nil, err
	}
	return &stores{local: local, mapping: m}, nil
}

func (s *stores) Close() error {
	return errors.Join(s.mapping.Close(), s.local.Close())
}

// newImporter opens the stores and returns a bootstrapped importer. The
// caller closes the returned stores.
func newImporter(ctx context.Context) (*importer.Importer, *stores, error) {
	s, err := openStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	client := wikidata.NewClient(cfg.Importer, wikidata.WithLogger(logger.Named("wikidata")))
	im, err := importer.New(client, s.local, s.mapping, cfg.Importer, importer.WithLogger(logger.Named("importer")))
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	if err := im.Bootstrap(ctx); err != nil {
		s.Close()
		return nil, nil, err
	}
	return im, s, nil
}
