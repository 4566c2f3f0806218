package exchange

// Pair identifies one order book.
type Pair struct {
	Base    string `json:"base"`
	Counter string `json:"counter"`
}

// Affected summarizes what one committed write changed, so a caller
// knows which views to refresh: the touched order book plus, per table,
// the ids of the users whose rows changed.
type Affected struct {
	Orderbook *Pair   `json:"orderbook,omitempty"`
	Base      string  `json:"base,omitempty"`
	Orders    []int64 `json:"orders,omitempty"`
	OtcOrders []int64 `json:"otcOrders,omitempty"`
	Contracts []int64 `json:"contracts,omitempty"`
	Positions []int64 `json:"positions,omitempty"`
	Transfers []int64 `json:"transfers,omitempty"`
}

// push appends a user id once, keeping first-seen order.
func push(list []int64, userID int64) []int64 {
	for _, id := range list {
		if id == userID {
			return list
		}
	}
	return append(list, userID)
}

func (a *Affected) addOrder(userID int64)    { a.Orders = push(a.Orders, userID) }
func (a *Affected) addOtcOrder(userID int64) { a.OtcOrders = push(a.OtcOrders, userID) }
func (a *Affected) addContract(userID int64) { a.Contracts = push(a.Contracts, userID) }
func (a *Affected) addPosition(userID int64) { a.Positions = push(a.Positions, userID) }
func (a *Affected) addTransfer(userID int64) { a.Transfers = push(a.Transfers, userID) }
