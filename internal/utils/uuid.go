package utils

import "github.com/google/uuid"

// UUIDGenerator issues record identifiers. Version 7 UUIDs are time ordered,
// which keeps freshly created records sorted by creation time on disk.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
