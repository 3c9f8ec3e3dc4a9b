package domain

import "errors"

var (
	// ErrInvalidAnswer is returned when a selected answer is not part of the active question.
	ErrInvalidAnswer = errors.New("answer not in active question")
	// ErrInvalidTransition marks an operation attempted in the wrong phase or while the transition lock is held.
	ErrInvalidTransition = errors.New("operation not valid in current phase")
	// ErrStorageUnavailable wraps persistence read/write failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrCategoryNotFound indicates a category ID absent from the catalog.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrTeamNotFound indicates a team ID absent from the registry.
	ErrTeamNotFound = errors.New("team not found")
	// ErrCatalogNotFound indicates the catalog content could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrInvalidCatalog indicates malformed catalog content.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrUnknownRoundPolicy is returned for a round policy name that is not supported.
	ErrUnknownRoundPolicy = errors.New("unknown round policy")
	// ErrInvalidTeamName is returned when a team name is blank.
	ErrInvalidTeamName = errors.New("team name must not be empty")
)
