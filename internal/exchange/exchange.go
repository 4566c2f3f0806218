// Package exchange is the transactional core: a facade over matching,
// balance settlement and transfer pipelines. Reads hit storage directly;
// every write is serialized through one writer goroutine (see writer.go),
// which stands in for row-level locking on databases that lack it.
package exchange

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"exchange_go/internal/domain"
	"exchange_go/internal/infra"
	"exchange_go/internal/infra/storage"
	"exchange_go/internal/ledger"
)

// Exchange owns the storage handle, the settlement service and the
// write queue. Create one per database; run its writer with Run.
type Exchange struct {
	store         *storage.Store
	ledger        *ledger.Service
	log           *slog.Logger
	jobs          chan job
	submitTimeout time.Duration
}

// New wires an exchange over an opened store. Run must be started
// before any write is submitted.
func New(store *storage.Store, log *slog.Logger, cfg *infra.Config) *Exchange {
	return &Exchange{
		store:         store,
		ledger:        ledger.NewService(store),
		log:           log,
		jobs:          make(chan job, cfg.Engine.QueueSize),
		submitTimeout: time.Duration(cfg.Engine.SubmitTimeoutMS) * time.Millisecond,
	}
}

// OrderParams describes an order to place, or an OTC quote to stand.
// FeeCurrency defaults to the base currency when empty.
type OrderParams struct {
	UserID      int64           `json:"userId"`
	Base        string          `json:"base"`
	Counter     string          `json:"counter"`
	Side        string          `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Qty         decimal.Decimal `json:"qty"`
	OTC         bool            `json:"otc"`
	FeeUserID   int64           `json:"feeUserId,omitempty"`
	FeeCurrency string          `json:"feeCurrency,omitempty"`
	FeeAmount   decimal.Decimal `json:"feeAmount,omitempty"`
}

func (p OrderParams) feeCurrencyOrBase() string {
	if p.FeeCurrency != "" {
		return p.FeeCurrency
	}
	return p.Base
}

// TransferParams describes a user-to-user transfer. The optional fee is
// taken from the sender in the transferred currency.
type TransferParams struct {
	SrcUserID int64           `json:"srcUserId"`
	DstUserID int64           `json:"dstUserId"`
	Base      string          `json:"base"`
	Qty       decimal.Decimal `json:"qty"`
	FeeUserID int64           `json:"feeUserId,omitempty"`
	FeeAmount decimal.Decimal `json:"feeAmount,omitempty"`
	Memo      string          `json:"memo,omitempty"`
	MemoType  string          `json:"memoType,omitempty"`
}

//*************************************************************************
// Writes
//*************************************************************************

// PlaceOrder submits a limit order. It matches immediately against the
// book; a non-OTC remainder rests, an OTC remainder is discarded.
func (e *Exchange) PlaceOrder(ctx context.Context, p OrderParams) (*Affected, error) {
	return e.submit(ctx, "place_order", p.UserID, func(tx *gorm.DB) (*Affected, error) {
		return e.placeOrder(tx, p)
	})
}

// CancelOrder cancels one of the user's own open orders.
func (e *Exchange) CancelOrder(ctx context.Context, userID, orderID int64, otc bool) (*Affected, error) {
	return e.submit(ctx, "cancel_order", userID, func(tx *gorm.DB) (*Affected, error) {
		return e.cancelOrder(tx, userID, orderID, otc)
	})
}

// Transfer moves funds from one user to another.
func (e *Exchange) Transfer(ctx context.Context, p TransferParams) (*Affected, error) {
	return e.submit(ctx, "transfer", p.SrcUserID, func(tx *gorm.DB) (*Affected, error) {
		return e.makeTransfer(tx, p)
	})
}

// SupplyPosition adjusts a user's holding from outside the exchange.
func (e *Exchange) SupplyPosition(ctx context.Context, userID int64, base string, qty decimal.Decimal) (*Affected, error) {
	return e.submit(ctx, "supply_position", userID, func(tx *gorm.DB) (*Affected, error) {
		return e.supplyPosition(tx, userID, base, qty)
	})
}

// QuoteOtc stands or replaces the user's OTC quote for one (pair, side),
// returning the quote's row id. The id is written on the writer goroutine
// before the reply, so reading it after submit returns is safe.
func (e *Exchange) QuoteOtc(ctx context.Context, p OrderParams) (int64, *Affected, error) {
	var quoteID int64
	affected, err := e.submit(ctx, "quote_otc", p.UserID, func(tx *gorm.DB) (*Affected, error) {
		id, aff, err := e.quoteOtc(tx, p)
		quoteID = id
		return aff, err
	})
	if err != nil {
		return 0, nil, err
	}
	return quoteID, affected, nil
}

//*************************************************************************
// Reads
//*************************************************************************

// Ping verifies the exchange can reach its database.
func (e *Exchange) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Level is one row of an order book view.
type Level struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// Orderbook is both sides of one book: bids from the highest price down,
// asks from the lowest up.
type Orderbook struct {
	Pair Pair    `json:"pair"`
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

const (
	defaultBookLimit = 10
	mergeFetchLimit  = 100
)

// GetOrderbook builds the book view for a pair, optionally scoped to one
// user's orders. Limit defaults to 10 rows per side; with merge set,
// up to 100 orders per side are fetched and collapsed by price before
// the limit applies.
func (e *Exchange) GetOrderbook(ctx context.Context, base, counter string, otc bool, userID int64, limit int, merge bool) (*Orderbook, error) {
	tx := e.store.Reader(ctx)

	if limit <= 0 {
		limit = defaultBookLimit
	}
	fetch := limit
	if merge {
		fetch = mergeFetchLimit
	}

	book := &Orderbook{Pair: Pair{Base: base, Counter: counter}}
	for _, side := range []string{domain.SideBuy, domain.SideSell} {
		open, err := e.store.OpenOrders(tx, otc, base, counter, side, userID, fetch)
		if err != nil {
			return nil, err
		}
		levels := toLevels(open, merge, limit)
		if side == domain.SideBuy {
			book.Bids = levels
		} else {
			book.Asks = levels
		}
	}
	return book, nil
}

func toLevels(open []domain.Order, merge bool, limit int) []Level {
	levels := make([]Level, 0, len(open))
	for _, o := range open {
		if merge && len(levels) > 0 && levels[len(levels)-1].Price.Equal(o.Price) {
			levels[len(levels)-1].Qty = levels[len(levels)-1].Qty.Add(o.Remaining)
			continue
		}
		levels = append(levels, Level{Price: o.Price, Qty: o.Remaining})
	}
	if limit > 0 && len(levels) > limit {
		levels = levels[:limit]
	}
	return levels
}

// GetOrders lists orders newest first, optionally scoped to one user,
// with cursor/limit paging.
func (e *Exchange) GetOrders(ctx context.Context, userID int64, otc bool, cursor, limit int) ([]domain.Order, error) {
	return e.store.Orders(e.store.Reader(ctx), otc, userID, cursor, limit)
}

// GetOrderByID loads one order.
func (e *Exchange) GetOrderByID(ctx context.Context, id int64, otc bool) (*domain.Order, error) {
	return e.store.OrderByID(e.store.Reader(ctx), otc, id, false)
}

// GetContracts lists trade records of one OTC-ness newest first,
// optionally scoped to one user and one pair, with cursor/limit paging.
func (e *Exchange) GetContracts(ctx context.Context, userID int64, base, counter string, otc bool, cursor, limit int) ([]domain.Contract, error) {
	return e.store.Contracts(e.store.Reader(ctx), userID, base, counter, otc, cursor, limit)
}

// GetContractByID loads one trade record.
func (e *Exchange) GetContractByID(ctx context.Context, id int64) (*domain.Contract, error) {
	return e.store.ContractByID(e.store.Reader(ctx), id)
}

// GetPositions lists a user's holdings, or everyone's when userID is 0,
// with cursor/limit paging.
func (e *Exchange) GetPositions(ctx context.Context, userID int64, cursor, limit int) ([]domain.Position, error) {
	return e.store.Positions(e.store.Reader(ctx), userID, cursor, limit)
}

// GetPositionByID loads one position row.
func (e *Exchange) GetPositionByID(ctx context.Context, id int64) (*domain.Position, error) {
	return e.store.PositionByID(e.store.Reader(ctx), id)
}

// GetPosition loads one user's holding of one currency. A user who never
// touched the currency gets NOT_FOUND, which reads as a zero balance.
func (e *Exchange) GetPosition(ctx context.Context, userID int64, base string) (*domain.Position, error) {
	return e.store.PositionByUserBase(e.store.Reader(ctx), userID, base)
}

// GetTransfers lists transfer records newest first with cursor/limit
// paging.
func (e *Exchange) GetTransfers(ctx context.Context, cursor, limit int) ([]domain.Transfer, error) {
	return e.store.Transfers(e.store.Reader(ctx), cursor, limit)
}

// GetTransferByID loads one transfer record.
func (e *Exchange) GetTransferByID(ctx context.Context, id int64) (*domain.Transfer, error) {
	return e.store.TransferByID(e.store.Reader(ctx), id)
}

// GetUserTransfers lists the transfers a user sent or received, with
// cursor/limit paging.
func (e *Exchange) GetUserTransfers(ctx context.Context, userID int64, cursor, limit int) ([]domain.Transfer, error) {
	return e.store.UserTransfers(e.store.Reader(ctx), userID, cursor, limit)
}
