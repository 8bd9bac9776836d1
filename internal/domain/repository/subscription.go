package repository

// Subscription is a live listener that stops delivering once detached.
// Detach is idempotent.
type Subscription interface {
	Detach()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Detach() { f() }
