// Command clientdemo exercises pkg/identity the way a first-party host page
// would: it bootstraps an initial envelope from a running refreshoperator,
// wires up the Lifecycle Manager with the production Transport and an
// in-memory cookie jar, and prints every externally observable transition
// until interrupted.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adsid/adsid-go/pkg/identity"
	"github.com/adsid/adsid-go/pkg/identity/identityhttp"
	"github.com/adsid/adsid-go/pkg/logx"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8090", "refreshoperator base URL")
	siteID := flag.Uint("site-id", 1, "site id to bootstrap an identity for")
	userID := flag.String("id", "demo-user", "opaque user id to bootstrap an identity for")
	flag.Parse()

	logx.Info("clientdemo: bootstrapping initial identity")
	env, err := bootstrap(*baseURL, uint32(*siteID), *userID)
	if err != nil {
		logx.Fatalf("clientdemo: bootstrap failed: %v", err)
	}

	manager := identity.NewManager(
		identity.SystemClock{},
		identityhttp.New(10*time.Second),
		identity.NewMemoryCookieJar(),
	)

	manager.Init(identity.Config{
		Identity: env,
		BaseURL:  *baseURL,
		Callback: func(p identity.CallbackPayload) {
			fmt.Printf("[callback] status=%s token=%q\n", p.Status, p.AdvertisingToken)
		},
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tok := manager.GetAdvertisingToken()
			if tok == identity.NoToken {
				fmt.Println("[poll] no token returnable right now")
			} else {
				fmt.Printf("[poll] token=%q\n", tok)
			}
		case <-sigChan:
			logx.Info("clientdemo: disconnecting")
			manager.Disconnect()
			return
		}
	}
}

// bootstrap calls the operator's demo-only client-generate endpoint to mint
// a first envelope, standing in for whatever first-party login flow would
// normally hand the host page its initial identity.
func bootstrap(baseURL string, siteID uint32, id string) (*identity.Envelope, error) {
	body, err := json.Marshal(map[string]any{"site_id": siteID, "id": id})
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(baseURL+"/v2/token/client-generate", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("clientdemo: bootstrap returned HTTP %d", resp.StatusCode)
	}

	var env identity.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	return &env, nil
}
