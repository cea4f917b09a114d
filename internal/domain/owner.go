package domain

// Owner identifies whose cart and checkout a request acts on: a signed-in customer or an
// anonymous browser session.
type Owner struct {
	CustomerID string
	Email      string
	SessionID  string
	// Token is the customer's bearer token, forwarded to the backend.
	Token string
}

func (o Owner) SignedIn() bool {
	return o.CustomerID != ""
}

// Key is the stable storage key for this owner.
func (o Owner) Key() string {
	if o.SignedIn() {
		return "user:" + o.CustomerID
	}
	return "guest:" + o.SessionID
}
