package catalog

import (
	"net/url"
	"strings"
)

// DefaultBaseURL is the location the catalog JSON files are served from.
const DefaultBaseURL = "https://raw.githubusercontent.com/p0werserg17/tr-ios-challenge/master"

// Endpoints builds the catalog request URLs.
type Endpoints struct {
	BaseURL string
}

// List returns the catalog list URL.
func (e Endpoints) List() (string, error) {
	return e.build("list.json")
}

// Details returns the details URL of id.
func (e Endpoints) Details(id MovieID) (string, error) {
	if !validPathID(id) {
		return "", ErrBadURL
	}
	return e.build("details", id.String()+".json")
}

// Recommended returns the recommendations URL of id.
func (e Endpoints) Recommended(id MovieID) (string, error) {
	if !validPathID(id) {
		return "", ErrBadURL
	}
	return e.build("details", "recommended", id.String()+".json")
}

func (e Endpoints) build(elem ...string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(e.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", ErrBadURL
	}
	return base.JoinPath(elem...).String(), nil
}

func validPathID(id MovieID) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id.String(), "/\\?#")
}
