package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/fjod/artshop/internal/domain"
)

const featureSession = "feature-session"

type lifecycleTestContext struct {
	f        *fixture
	carts    *mockCartStore
	cartSvc  *CartService
	policy   domain.TransitionPolicy
	order    *domain.Order
	tracking string
	err      error
}

func (c *lifecycleTestContext) reset() {
	c.policy = nil
	c.order = nil
	c.tracking = ""
	c.err = nil
	c.rebuild(nil)
}

// rebuild recreates the services, keeping the catalog.
func (c *lifecycleTestContext) rebuild(catalog *mockArtworkRepository) {
	c.f = newFixture(c.policy)
	if catalog != nil {
		c.f.artworks = catalog
		c.f.sut.artworks = catalog
	}
	c.carts = newMockCartStore()
	c.cartSvc = NewCartService(c.carts, c.f.artworks, c.f.sut, nil)
}

func principal(name string) domain.Principal {
	return domain.Principal{UserID: name, Name: name, Role: domain.RoleUser}
}

func (c *lifecycleTestContext) theCatalogContains(table *godog.Table) error {
	catalog := newMockArtworkRepository()
	for _, row := range table.Rows[1:] {
		var a domain.Artwork
		if _, err := fmt.Sscan(row.Cells[0].Value, &a.ID); err != nil {
			return err
		}
		if _, err := fmt.Sscan(row.Cells[2].Value, &a.Price); err != nil {
			return err
		}
		a.Title = row.Cells[1].Value
		a.Available = row.Cells[3].Value == "true"
		catalog.artworks[a.ID] = &a
	}
	c.rebuild(catalog)
	return nil
}

func (c *lifecycleTestContext) transitionsAreStrict() error {
	catalog := c.f.artworks
	c.policy = domain.StrictPolicy{}
	c.rebuild(catalog)
	return nil
}

func (c *lifecycleTestContext) theSessionCartHolds(quantity int, artworkID int64) error {
	if _, err := c.cartSvc.AddItem(context.Background(), featureSession, artworkID); err != nil {
		return err
	}
	_, err := c.cartSvc.SetQuantity(context.Background(), featureSession, artworkID, quantity)
	return err
}

func (c *lifecycleTestContext) artworkIsAddedToTheSessionCart(artworkID int64) error {
	_, c.err = c.cartSvc.AddItem(context.Background(), featureSession, artworkID)
	return nil
}

func (c *lifecycleTestContext) checksOutPayingBy(user, method string) error {
	c.order, c.err = c.cartSvc.Checkout(context.Background(), principal(user), featureSession, CheckoutInput{
		ShippingAddress: address,
		PaymentMethod:   domain.PaymentMethod(method),
	})
	return nil
}

func (c *lifecycleTestContext) placedAnOrderFor(user string, quantity int, artworkID int64) error {
	order, err := c.f.sut.CreateOrder(context.Background(), principal(user), CreateOrderInput{
		Lines:           []domain.Line{{ArtworkID: artworkID, Quantity: quantity}},
		ShippingAddress: address,
		PaymentMethod:   domain.PaymentMethodCard,
	})
	if err != nil {
		return err
	}
	c.order = order
	return nil
}

func (c *lifecycleTestContext) theAdminSetsTheOrderStatusTo(status string) error {
	if c.order == nil {
		return errors.New("no order placed")
	}
	order, err := c.f.sut.UpdateStatus(context.Background(), c.order.ID, domain.OrderStatus(status), nil)
	c.err = err
	if err != nil {
		return nil
	}
	if c.tracking == "" {
		c.tracking = order.TrackingNumber
	}
	c.order = order
	return nil
}

func (c *lifecycleTestContext) theAdminMovesTheOrderThrough(path string) error {
	for _, status := range strings.Split(path, ",") {
		if err := c.theAdminSetsTheOrderStatusTo(status); err != nil {
			return err
		}
		if c.err != nil {
			return nil
		}
	}
	return nil
}

func (c *lifecycleTestContext) readsTheOrder(user string) error {
	_, c.err = c.f.sut.GetOrder(context.Background(), principal(user), c.order.ID)
	return nil
}

func (c *lifecycleTestContext) theOrderTotalIs(total int64) error {
	if c.err != nil {
		return fmt.Errorf("expected an order but got error: %v", c.err)
	}
	if c.order.Total != total {
		return fmt.Errorf("expected total %d, got %d", total, c.order.Total)
	}
	return nil
}

func (c *lifecycleTestContext) theOrderShippingIs(shipping int64) error {
	if c.order.Shipping != shipping {
		return fmt.Errorf("expected shipping %d, got %d", shipping, c.order.Shipping)
	}
	return nil
}

func (c *lifecycleTestContext) theOrderStatusIs(status string) error {
	stored := c.f.orders.get(c.order.ID)
	if stored == nil {
		return fmt.Errorf("order %s was not stored", c.order.ID)
	}
	if string(stored.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, stored.Status)
	}
	return nil
}

func (c *lifecycleTestContext) theSessionCartIsEmpty() error {
	if c.carts.exists(featureSession) {
		return errors.New("expected the session cart to be cleared")
	}
	return nil
}

func (c *lifecycleTestContext) theRequestFailsWith(kind string) error {
	if c.err == nil {
		return fmt.Errorf("expected %s error but got none", kind)
	}
	if got := domain.KindOf(c.err); string(got) != kind {
		return fmt.Errorf("expected %s error, got %s: %v", kind, got, c.err)
	}
	return nil
}

func (c *lifecycleTestContext) theOutcomeIs(outcome string) error {
	if outcome == "ok" {
		if c.err != nil {
			return fmt.Errorf("expected success but got: %v", c.err)
		}
		return nil
	}
	return c.theRequestFailsWith(outcome)
}

func (c *lifecycleTestContext) theOrderHasATrackingNumber() error {
	if !strings.HasPrefix(c.order.TrackingNumber, "TRK-") {
		return fmt.Errorf("expected a tracking number, got %q", c.order.TrackingNumber)
	}
	return nil
}

func (c *lifecycleTestContext) theTrackingNumberDidNotChange() error {
	if c.order.TrackingNumber != c.tracking {
		return fmt.Errorf("tracking number changed from %s to %s", c.tracking, c.order.TrackingNumber)
	}
	return nil
}

func (c *lifecycleTestContext) statusEventsWereRecorded(n int) error {
	if got := len(c.f.events.all()); got != n {
		return fmt.Errorf("expected %d status events, got %d", n, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &lifecycleTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog contains$`, tc.theCatalogContains)
	ctx.Step(`^transitions are strict$`, tc.transitionsAreStrict)
	ctx.Step(`^the session cart holds (\d+) of artwork (\d+)$`, tc.theSessionCartHolds)
	ctx.Step(`^"([^"]*)" placed an order for (\d+) of artwork (\d+)$`, tc.placedAnOrderFor)

	// When steps
	ctx.Step(`^artwork (\d+) is added to the session cart$`, tc.artworkIsAddedToTheSessionCart)
	ctx.Step(`^"([^"]*)" checks out paying by "([^"]*)"$`, tc.checksOutPayingBy)
	ctx.Step(`^the admin sets the order status to "([^"]*)"$`, tc.theAdminSetsTheOrderStatusTo)
	ctx.Step(`^the admin moves the order through "([^"]*)"$`, tc.theAdminMovesTheOrderThrough)
	ctx.Step(`^"([^"]*)" reads the order$`, tc.readsTheOrder)

	// Then steps
	ctx.Step(`^the order total is (\d+)$`, tc.theOrderTotalIs)
	ctx.Step(`^the order shipping is (\d+)$`, tc.theOrderShippingIs)
	ctx.Step(`^the order status is "([^"]*)"$`, tc.theOrderStatusIs)
	ctx.Step(`^the session cart is empty$`, tc.theSessionCartIsEmpty)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^the outcome is "([^"]*)"$`, tc.theOutcomeIs)
	ctx.Step(`^the order has a tracking number$`, tc.theOrderHasATrackingNumber)
	ctx.Step(`^the tracking number did not change$`, tc.theTrackingNumberDidNotChange)
	ctx.Step(`^(\d+) status events were recorded$`, tc.statusEventsWereRecorded)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
