package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
)

// PremiumCacheTTL bounds how long a verified result is trusted.
const PremiumCacheTTL = time.Hour

var ErrPurchaseUnavailable = errors.New("purchase flow unavailable")

// EntitlementService answers "is premium unlocked" with a cached remote check
// that falls back to the last known answer when the remote is unreachable.
type EntitlementService struct {
	store       ports.DocumentStore
	verifier    ports.LicenseVerifier
	browser     ports.Browser
	checkoutURL string
	log         *slog.Logger
	now         func() time.Time
}

func NewEntitlementService(store ports.DocumentStore, verifier ports.LicenseVerifier, browser ports.Browser, checkoutURL string, logger *slog.Logger) *EntitlementService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntitlementService{
		store:       store,
		verifier:    verifier,
		browser:     browser,
		checkoutURL: checkoutURL,
		log:         logger,
		now:         time.Now,
	}
}

// Check never fails: remote and auth errors degrade to the last known value,
// and to false when nothing was ever verified.
func (e *EntitlementService) Check(ctx context.Context) bool {
	var cached domain.PremiumCache
	if err := e.store.Get(ctx, KeyPremiumStatus, &cached); err == nil && cached.Valid(e.now()) {
		return cached.Premium
	}

	premium, err := e.verify(ctx)
	if err != nil {
		e.log.Warn("premium check failed, using last known value", "err", err)
		var lastKnown bool
		if err := e.store.Get(ctx, KeyPremiumLastKnown, &lastKnown); err != nil {
			return false
		}
		return lastKnown
	}

	entry := domain.PremiumCache{Premium: premium, ExpiresAt: e.now().Add(PremiumCacheTTL)}
	if err := e.store.Set(ctx, KeyPremiumStatus, entry); err != nil {
		e.log.Error("caching premium status", "err", err)
	}
	if err := e.store.Set(ctx, KeyPremiumLastKnown, premium); err != nil {
		e.log.Error("saving last known premium status", "err", err)
	}
	return premium
}

func (e *EntitlementService) verify(ctx context.Context) (bool, error) {
	if e.verifier == nil {
		return false, errors.New("no license verifier configured")
	}
	license, err := e.verifier.Verify(ctx)
	if err != nil {
		return false, err
	}
	return license.Premium(), nil
}

// Purchase opens the checkout page and, once it is open, drops the cached
// status so the next Check asks the remote again.
func (e *EntitlementService) Purchase(ctx context.Context, sku string) error {
	if e.browser == nil || e.checkoutURL == "" {
		return ErrPurchaseUnavailable
	}

	checkout, err := url.Parse(e.checkoutURL)
	if err != nil {
		return fmt.Errorf("checkout url: %w", err)
	}
	if sku != "" {
		q := checkout.Query()
		q.Set("sku", sku)
		checkout.RawQuery = q.Encode()
	}

	if err := e.browser.CreateTab(ctx, ports.TabSpec{URL: checkout.String(), Active: true}); err != nil {
		return fmt.Errorf("open checkout: %w", err)
	}
	return e.Invalidate(ctx)
}

func (e *EntitlementService) Invalidate(ctx context.Context) error {
	return e.store.Delete(ctx, KeyPremiumStatus)
}
