package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"exchange_go/internal/domain"
	"exchange_go/internal/infra"
)

func setupTestStore(t *testing.T) *Store {
	cfg := &infra.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "test.db")

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newOrder(userID int64, side string, price, qty int64) *domain.Order {
	return &domain.Order{
		UserID: userID, Base: "USD", Counter: "JPY", Side: side,
		Price: dec(price), Qty: dec(qty), Remaining: dec(qty),
	}
}

func TestOrderLifecycle(t *testing.T) {
	s := setupTestStore(t)
	tx := s.Reader(context.Background())

	o := newOrder(101, domain.SideBuy, 100, 50)
	if err := s.InsertOrder(tx, false, o); err != nil {
		t.Fatalf("InsertOrder failed: %v", err)
	}
	if o.ID == 0 {
		t.Fatal("expected generated order id")
	}

	fetched, err := s.OrderByID(tx, false, o.ID, false)
	if err != nil {
		t.Fatalf("OrderByID failed: %v", err)
	}
	if !fetched.Remaining.Equal(dec(50)) {
		t.Errorf("remaining = %s, want 50", fetched.Remaining)
	}

	if err := s.SetRemaining(tx, false, o.ID, dec(20)); err != nil {
		t.Fatalf("SetRemaining failed: %v", err)
	}
	if err := s.MarkCancelled(tx, false, o.ID); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}

	fetched, _ = s.OrderByID(tx, false, o.ID, false)
	if !fetched.Remaining.Equal(dec(20)) || !fetched.Cancelled {
		t.Errorf("order = remaining %s cancelled %v, want 20 true", fetched.Remaining, fetched.Cancelled)
	}

	_, err = s.OrderByID(tx, false, 9999, false)
	if domain.CodeOf(err) != domain.CodeNotFound {
		t.Errorf("missing order code = %v, want NOT_FOUND", domain.CodeOf(err))
	}
}

func TestMatchableOrdersPriority(t *testing.T) {
	s := setupTestStore(t)
	tx := s.Reader(context.Background())

	// Resting sells: two at 98 (time priority by id), one at 99, one
	// above the taker's limit, one cancelled, one on another pair.
	first := newOrder(201, domain.SideSell, 98, 10)
	second := newOrder(202, domain.SideSell, 98, 10)
	mid := newOrder(203, domain.SideSell, 99, 10)
	tooHigh := newOrder(204, domain.SideSell, 101, 10)
	dead := newOrder(205, domain.SideSell, 97, 10)
	other := newOrder(206, domain.SideSell, 98, 10)
	other.Counter = "EUR"

	for _, o := range []*domain.Order{first, second, mid, tooHigh, dead, other} {
		if err := s.InsertOrder(tx, false, o); err != nil {
			t.Fatalf("InsertOrder failed: %v", err)
		}
	}
	if err := s.MarkCancelled(tx, false, dead.ID); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}

	taker := *newOrder(101, domain.SideBuy, 100, 25)
	got, err := s.MatchableOrders(tx, taker, false, false)
	if err != nil {
		t.Fatalf("MatchableOrders failed: %v", err)
	}

	wantIDs := []int64{first.ID, second.ID, mid.ID}
	if len(got) != len(wantIDs) {
		t.Fatalf("candidates = %d, want %d", len(got), len(wantIDs))
	}
	for i, o := range got {
		if o.ID != wantIDs[i] {
			t.Errorf("candidate %d id = %d, want %d", i, o.ID, wantIDs[i])
		}
	}

	// Seller taker walks the buy side from the highest bid down.
	if err := s.InsertOrder(tx, false, newOrder(207, domain.SideBuy, 100, 10)); err != nil {
		t.Fatalf("InsertOrder failed: %v", err)
	}
	if err := s.InsertOrder(tx, false, newOrder(208, domain.SideBuy, 99, 10)); err != nil {
		t.Fatalf("InsertOrder failed: %v", err)
	}
	sellTaker := *newOrder(102, domain.SideSell, 99, 25)
	got, err = s.MatchableOrders(tx, sellTaker, false, false)
	if err != nil {
		t.Fatalf("MatchableOrders failed: %v", err)
	}
	if len(got) != 2 || !got[0].Price.Equal(dec(100)) || !got[1].Price.Equal(dec(99)) {
		t.Fatalf("sell-side candidates wrong: %+v", got)
	}
}

func TestOtcOrdersAreSeparate(t *testing.T) {
	s := setupTestStore(t)
	tx := s.Reader(context.Background())

	if err := s.InsertOrder(tx, true, newOrder(301, domain.SideSell, 98, 100)); err != nil {
		t.Fatalf("InsertOrder otc failed: %v", err)
	}

	normal, err := s.Orders(tx, false, 0, 0, 0)
	if err != nil {
		t.Fatalf("Orders failed: %v", err)
	}
	if len(normal) != 0 {
		t.Errorf("normal orders = %d, want 0", len(normal))
	}

	otc, err := s.Orders(tx, true, 301, 0, 0)
	if err != nil {
		t.Fatalf("Orders otc failed: %v", err)
	}
	if len(otc) != 1 {
		t.Errorf("otc orders = %d, want 1", len(otc))
	}
}

func TestUpsertOtcOrder(t *testing.T) {
	s := setupTestStore(t)
	tx := s.Reader(context.Background())

	quote := newOrder(301, domain.SideSell, 98, 100)
	if err := s.UpsertOtcOrder(tx, quote); err != nil {
		t.Fatalf("UpsertOtcOrder failed: %v", err)
	}
	firstID := quote.ID

	// Re-quoting the same (user, pair, side) replaces the row in place.
	requote := newOrder(301, domain.SideSell, 97, 200)
	if err := s.UpsertOtcOrder(tx, requote); err != nil {
		t.Fatalf("UpsertOtcOrder requote failed: %v", err)
	}
	if requote.ID != firstID {
		t.Errorf("requote id = %d, want %d", requote.ID, firstID)
	}

	fetched, err := s.OrderByID(tx, true, firstID, false)
	if err != nil {
		t.Fatalf("OrderByID failed: %v", err)
	}
	if !fetched.Price.Equal(dec(97)) || !fetched.Remaining.Equal(dec(200)) {
		t.Errorf("requoted = %s @ %s, want 200 @ 97", fetched.Remaining, fetched.Price)
	}

	// A different side is a separate quote.
	bid := newOrder(301, domain.SideBuy, 96, 50)
	if err := s.UpsertOtcOrder(tx, bid); err != nil {
		t.Fatalf("UpsertOtcOrder bid failed: %v", err)
	}
	if bid.ID == firstID {
		t.Error("buy quote reused the sell quote's row")
	}
}

func TestPositions(t *testing.T) {
	s := setupTestStore(t)
	tx := s.Reader(context.Background())

	_, err := s.PositionForUpdate(tx, 101, "USD")
	if domain.CodeOf(err) != domain.CodeNotFound {
		t.Fatalf("missing position code = %v, want NOT_FOUND", domain.CodeOf(err))
	}

	p := &domain.Position{UserID: 101, Base: "USD", Qty: dec(100)}
	if err := s.InsertPosition(tx, p); err != nil {
		t.Fatalf("InsertPosition failed: %v", err)
	}

	if err := s.AddPositionQty(tx, p.ID, dec(-30)); err != nil {
		t.Fatalf("AddPositionQty failed: %v", err)
	}

	fetched, err := s.PositionByUserBase(tx, 101, "USD")
	if err != nil {
		t.Fatalf("PositionByUserBase failed: %v", err)
	}
	if !fetched.Qty.Equal(dec(70)) {
		t.Errorf("qty = %s, want 70", fetched.Qty)
	}

	if err := s.InsertPosition(tx, &domain.Position{UserID: 101, Base: "JPY", Qty: dec(5000)}); err != nil {
		t.Fatalf("InsertPosition failed: %v", err)
	}
	all, err := s.Positions(tx, 101, 0, 0)
	if err != nil {
		t.Fatalf("Positions failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("positions = %d, want 2", len(all))
	}
}

func TestContractsAndTransfers(t *testing.T) {
	s := setupTestStore(t)
	tx := s.Reader(context.Background())

	contracts := []domain.Contract{
		{UserID: 101, CounterUserID: 103, Base: "USD", Counter: "JPY",
			Side: domain.SideBuy, Price: dec(98), Qty: dec(50),
			OfferPrice: dec(100), OfferQty: dec(50)},
		{UserID: 103, CounterUserID: 101, Base: "USD", Counter: "JPY",
			Side: domain.SideSell, Price: dec(98), Qty: dec(50),
			OfferPrice: dec(98), OfferQty: dec(100)},
	}
	if err := s.InsertContracts(tx, contracts); err != nil {
		t.Fatalf("InsertContracts failed: %v", err)
	}

	got, err := s.Contracts(tx, 101, "USD", "JPY", false, 0, 0)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if len(got) != 1 || got[0].CounterUserID != 103 {
		t.Fatalf("contracts for 101 wrong: %+v", got)
	}

	tr := &domain.Transfer{SrcUserID: 101, DstUserID: 102, Base: "USD",
		Qty: dec(95), FeeUserID: 999, FeeAmount: dec(5), Memo: "invoice 42", MemoType: "text/plain"}
	if err := s.InsertTransfer(tx, tr); err != nil {
		t.Fatalf("InsertTransfer failed: %v", err)
	}

	fetched, err := s.TransferByID(tx, tr.ID)
	if err != nil {
		t.Fatalf("TransferByID failed: %v", err)
	}
	if fetched.Memo != "invoice 42" {
		t.Errorf("memo = %q, want \"invoice 42\"", fetched.Memo)
	}

	for _, userID := range []int64{101, 102} {
		list, err := s.UserTransfers(tx, userID, 0, 0)
		if err != nil {
			t.Fatalf("UserTransfers(%d) failed: %v", userID, err)
		}
		if len(list) != 1 {
			t.Errorf("transfers for %d = %d, want 1", userID, len(list))
		}
	}
	list, _ := s.UserTransfers(tx, 999, 0, 0)
	if len(list) != 0 {
		t.Errorf("transfers for fee collector = %d, want 0", len(list))
	}
}

func TestOrdersPaging(t *testing.T) {
	s := setupTestStore(t)
	tx := s.Reader(context.Background())

	var ids []int64
	for i := 0; i < 5; i++ {
		o := newOrder(101, domain.SideBuy, 100, 10)
		if err := s.InsertOrder(tx, false, o); err != nil {
			t.Fatalf("InsertOrder failed: %v", err)
		}
		ids = append(ids, o.ID)
	}

	// Newest first: the full listing leads with the last insert.
	all, err := s.Orders(tx, false, 101, 0, 0)
	if err != nil {
		t.Fatalf("Orders failed: %v", err)
	}
	if len(all) != 5 || all[0].ID != ids[4] {
		t.Fatalf("full listing = %d rows leading with %d, want 5 leading with %d",
			len(all), all[0].ID, ids[4])
	}

	// A cursor skips past the newest rows and the limit caps the page.
	page, err := s.Orders(tx, false, 101, 2, 2)
	if err != nil {
		t.Fatalf("Orders paged failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Fatalf("page = %+v, want ids %d, %d", page, ids[2], ids[1])
	}
}

func TestContractsOtcFilter(t *testing.T) {
	s := setupTestStore(t)
	tx := s.Reader(context.Background())

	rows := []domain.Contract{
		{UserID: 101, CounterUserID: 103, Base: "USD", Counter: "JPY",
			Side: domain.SideBuy, Price: dec(98), Qty: dec(50),
			OfferPrice: dec(100), OfferQty: dec(50)},
		{UserID: 101, CounterUserID: 301, Base: "USD", Counter: "JPY",
			Side: domain.SideBuy, Price: dec(97), Qty: dec(20),
			OfferPrice: dec(97), OfferQty: dec(20), OTC: true},
	}
	if err := s.InsertContracts(tx, rows); err != nil {
		t.Fatalf("InsertContracts failed: %v", err)
	}

	normal, err := s.Contracts(tx, 101, "USD", "JPY", false, 0, 0)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if len(normal) != 1 || normal[0].OTC {
		t.Fatalf("normal contracts wrong: %+v", normal)
	}

	otc, err := s.Contracts(tx, 101, "USD", "JPY", true, 0, 0)
	if err != nil {
		t.Fatalf("Contracts otc failed: %v", err)
	}
	if len(otc) != 1 || !otc[0].OTC {
		t.Fatalf("otc contracts wrong: %+v", otc)
	}
}
