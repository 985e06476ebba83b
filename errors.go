package nodulefed

import (
	"errors"

	"github.com/hupe1980/nodulefed/allocator"
	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/volume"
)

var (
	// ErrEmptyPool is returned when no candidate is left to allocate.
	ErrEmptyPool = errors.New("candidate pool is empty")

	// ErrNoClients is returned for a federation config without rows.
	ErrNoClients = federation.ErrNoClients

	// ErrNotFound reports a missing volume or blob. It is os.ErrNotExist.
	ErrNotFound = volume.ErrNotFound
)

type (
	// ParseError reports a malformed row of a candidate, annotation, series
	// or federation config file.
	ParseError = candidate.ParseError

	// DomainError reports an invalid spacing, size or index.
	DomainError = coord.DomainError

	// ConfigError reports a federation config row with an invalid ratio.
	ConfigError = federation.ConfigError

	// PersistError reports a patch that could not be written.
	PersistError = allocator.PersistError
)
