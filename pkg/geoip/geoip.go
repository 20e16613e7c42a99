// Package geoip wraps MaxMind's GeoIP2 reader for the ephemeral,
// best-effort enrichment geosentry layers on top of the Location Verifier
// (city lookup for the GPS-vs-GeoIP cross-check). The ASN lookup is
// available here but no other package calls it.
//
// Unlike the login-history engine this package was originally written for,
// geosentry treats GeoIP lookup as optional: when no database is
// configured, or a lookup fails, callers degrade gracefully instead of
// failing the request. Coordinates returned here are city centroids, not
// precise locations, and are used only for ephemeral distance comparisons
// — they are never persisted.
package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Data is the geographic information derived from an IP address for one
// lookup.
type Data struct {
	CountryCode string  // ISO 3166-1 alpha-2 code (e.g., "US", "TR")
	CityName    string  // English city name from GeoNames database
	Latitude    float64 // City centroid latitude (ephemeral use only)
	Longitude   float64 // City centroid longitude (ephemeral use only)
	Timezone    string  // IANA timezone (e.g., "Europe/Istanbul")
}

// ASNData is the network-operator information derived from an IP address.
type ASNData struct {
	ASN          uint
	Organization string
}

// Service looks up city and ASN data from MaxMind databases. A nil
// *Service is valid: every method on it reports "no data" rather than
// panicking, so geosentry can be wired up without any GeoIP database and
// simply lose the supplemental cross-checks that depend on one.
type Service struct {
	cityReader *geoip2.Reader
	asnReader  *geoip2.Reader
}

// NewService opens the given MaxMind database files. Either path may be
// empty to skip that reader.
//
// The databases can be downloaded from MaxMind:
// https://dev.maxmind.com/geoip/geolite2-free-geolocation-data
func NewService(cityDBPath, asnDBPath string) (*Service, error) {
	s := &Service{}

	if cityDBPath != "" {
		r, err := geoip2.Open(cityDBPath)
		if err != nil {
			return nil, fmt.Errorf("geoip: open city database: %w", err)
		}
		s.cityReader = r
	}

	if asnDBPath != "" {
		r, err := geoip2.Open(asnDBPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("geoip: open ASN database: %w", err)
		}
		s.asnReader = r
	}

	return s, nil
}

// Close releases any open database handles. Safe to call on a nil
// *Service.
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.cityReader != nil {
		s.cityReader.Close()
	}
	if s.asnReader != nil {
		s.asnReader.Close()
	}
}

// Lookup returns city-level geographic data for an IP address. The second
// return value is false when no data could be produced (no database
// configured, unparseable IP, or lookup miss) — callers treat that as
// "skip this enrichment", never as a hard error.
//
// Privacy note: the coordinates returned are city centroids, used only for
// an ephemeral distance comparison — never persisted.
func (s *Service) Lookup(ipAddress string) (Data, bool) {
	if s == nil || s.cityReader == nil {
		return Data{}, false
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return Data{}, false
	}

	record, err := s.cityReader.City(ip)
	if err != nil {
		return Data{}, false
	}

	return Data{
		CountryCode: record.Country.IsoCode,
		CityName:    record.City.Names["en"],
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
		Timezone:    record.Location.TimeZone,
	}, true
}

// LookupASN returns the autonomous system owning an IP address, following
// the same "false means skip" contract as Lookup.
func (s *Service) LookupASN(ipAddress string) (ASNData, bool) {
	if s == nil || s.asnReader == nil {
		return ASNData{}, false
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return ASNData{}, false
	}

	record, err := s.asnReader.ASN(ip)
	if err != nil {
		return ASNData{}, false
	}

	return ASNData{
		ASN:          uint(record.AutonomousSystemNumber),
		Organization: record.AutonomousSystemOrganization,
	}, true
}
