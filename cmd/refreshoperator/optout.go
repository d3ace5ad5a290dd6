package main

import (
	"fmt"
	"strings"

	"github.com/adsid/adsid-go/pkg/idcodec"
)

// optoutStore is a deliberately minimal, in-memory stand-in for the real
// opt-out service, which lives elsewhere. It exists only so the refresh
// endpoint has something to consult to exercise the `optout` branch of
// the wire contract end to end.
type optoutStore struct {
	users map[string]bool
}

// newOptoutStore seeds the store from a "site:id,site:id" CSV, as set by
// the OPTOUT_USERS environment variable.
func newOptoutStore(csv string) *optoutStore {
	s := &optoutStore{users: make(map[string]bool)}
	for _, entry := range strings.Split(csv, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			s.users[entry] = true
		}
	}
	return s
}

func (s *optoutStore) isOptedOut(ui idcodec.UserIdentity) bool {
	return s.users[fmt.Sprintf("%d:%s", ui.SiteID, ui.ID)]
}
