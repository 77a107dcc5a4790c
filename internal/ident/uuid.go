package ident

import "github.com/google/uuid"

// UUIDProvider issues UUIDv7 identifiers for new records.
type UUIDProvider struct{}

// NewUUIDProvider constructs a UUIDProvider.
func NewUUIDProvider() *UUIDProvider {
	return &UUIDProvider{}
}

func (p *UUIDProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
