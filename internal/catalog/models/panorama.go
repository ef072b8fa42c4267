package models

import "errors"

// ============================================================
// Panorama
// ============================================================

type PanoramaKind string

const (
	PanoramaImage PanoramaKind = "image"
	PanoramaVideo PanoramaKind = "video"
)

type PanoramaOwner string

const (
	OwnerComplex   PanoramaOwner = "complex"
	OwnerApartment PanoramaOwner = "apartment"
)

var ErrPanoramaOwner = errors.New("panorama must belong to exactly one of complex or apartment")

// Panorama хранит 360° снимок или видео комплекса либо квартиры.
// Source хранит http(s) URL или ключ в объектном хранилище; в URL попадает ссылка, выданная клиенту.
type Panorama struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Kind        PanoramaKind `json:"kind"`
	Source      string       `json:"source"`
	Preview     string       `json:"preview,omitempty"`
	URL         string       `json:"url,omitempty"`
	ComplexID   *int64       `json:"complex_id,omitempty"`
	ApartmentID *int64       `json:"apartment_id,omitempty"`
	CreatedAt   string       `json:"created_at"`
}

// Owner возвращает тип и идентификатор владельца панорамы.
func (p Panorama) Owner() (PanoramaOwner, int64, error) {
	switch {
	case p.ComplexID != nil && p.ApartmentID == nil:
		return OwnerComplex, *p.ComplexID, nil
	case p.ApartmentID != nil && p.ComplexID == nil:
		return OwnerApartment, *p.ApartmentID, nil
	default:
		return "", 0, ErrPanoramaOwner
	}
}
