package engine

import (
	"testing"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

func TestMarketBuyPaysOfflineSeller(t *testing.T) {
	r, db := newTestRoom(t, nil)
	seller := joinAt(t, r, "s1", "Sam", 1000, 1000)
	r.st.Give(seller, economy.ItemBerries, 3)

	if r.Handle("s1", protocol.MarketList{ItemID: economy.ItemBerries, Quantity: 4, PricePerUnit: 5}) {
		t.Fatalf("listing more than held accepted")
	}
	if r.Handle("s1", protocol.MarketList{ItemID: economy.ItemBerries, Quantity: 2, PricePerUnit: 0}) {
		t.Fatalf("free listing accepted")
	}
	if !r.Handle("s1", protocol.MarketList{ItemID: economy.ItemBerries, Quantity: 2, PricePerUnit: 5}) {
		t.Fatalf("listing rejected")
	}
	if got := seller.Inventory.Count(economy.ItemBerries); got != 1 {
		t.Fatalf("escrow: seller holds %d berries want 1", got)
	}
	l := r.st.Listings()[0]
	if r.Handle("s1", protocol.MarketBuy{ListingID: l.ID}) {
		t.Fatalf("bought own listing")
	}

	startCoins := seller.Coins
	r.Leave("s1")

	buyer := joinAt(t, r, "s2", "Bea", 1000, 1000)
	if !r.Handle("s2", protocol.MarketBuy{ListingID: l.ID}) {
		t.Fatalf("buy rejected")
	}
	if buyer.Coins != r.cfg.World.StarterCoins-5 || buyer.Inventory.Count(economy.ItemBerries) != 1 {
		t.Fatalf("buyer after one unit: coins %d berries %d", buyer.Coins, buyer.Inventory.Count(economy.ItemBerries))
	}
	rec, err := db.GetPlayer(seller.StableID)
	if err != nil || rec == nil || rec.Coins != startCoins+5 {
		t.Fatalf("offline seller record: %+v, %v want coins %d", rec, err, startCoins+5)
	}
	stored, err := db.Listings()
	if err != nil || len(stored) != 1 || stored[0].Quantity != 1 {
		t.Fatalf("stored listing after one sale: %+v, %v", stored, err)
	}

	if !r.Handle("s2", protocol.MarketBuy{ListingID: l.ID}) {
		t.Fatalf("second buy rejected")
	}
	if r.st.Listing(l.ID) != nil {
		t.Fatalf("sold-out listing still open")
	}
	if stored, _ := db.Listings(); len(stored) != 0 {
		t.Fatalf("sold-out listing still stored: %+v", stored)
	}
	if rec, _ := db.GetPlayer(seller.StableID); rec.Coins != startCoins+10 {
		t.Fatalf("seller coins after sell-out: got %d want %d", rec.Coins, startCoins+10)
	}
	if r.Handle("s2", protocol.MarketBuy{ListingID: l.ID}) {
		t.Fatalf("bought from a closed listing")
	}
}

func TestMarketBuyPaysOnlineSeller(t *testing.T) {
	r, _ := newTestRoom(t, nil)
	seller := joinAt(t, r, "s1", "Sam", 1000, 1000)
	buyer := joinAt(t, r, "s2", "Bea", 1000, 1000)
	r.st.Give(seller, economy.ItemBread, 1)
	r.Handle("s1", protocol.MarketList{ItemID: economy.ItemBread, Quantity: 1, PricePerUnit: 8})
	l := r.st.Listings()[0]

	r.st.AddCoins(buyer, -buyer.Coins+7)
	if r.Handle("s2", protocol.MarketBuy{ListingID: l.ID}) {
		t.Fatalf("buy without enough coins accepted")
	}
	r.st.AddCoins(buyer, 1)
	before := seller.Coins
	if !r.Handle("s2", protocol.MarketBuy{ListingID: l.ID}) {
		t.Fatalf("buy rejected")
	}
	if buyer.Coins != 0 || seller.Coins != before+8 {
		t.Fatalf("coins: buyer %d seller %d", buyer.Coins, seller.Coins)
	}
}

func TestMarketCancel(t *testing.T) {
	r, db := newTestRoom(t, nil)
	seller := joinAt(t, r, "s1", "Sam", 1000, 1000)
	joinAt(t, r, "s2", "Bea", 1000, 1000)
	r.st.Give(seller, economy.ItemStone, 3)
	r.Handle("s1", protocol.MarketList{ItemID: economy.ItemStone, Quantity: 3, PricePerUnit: 2})
	l := r.st.Listings()[0]

	if r.Handle("s2", protocol.MarketCancel{ListingID: l.ID}) {
		t.Fatalf("stranger cancelled a listing")
	}
	if !r.Handle("s1", protocol.MarketCancel{ListingID: l.ID}) {
		t.Fatalf("cancel rejected")
	}
	if seller.Inventory.Count(economy.ItemStone) != 3 {
		t.Fatalf("escrow not returned: %v", seller.Inventory)
	}
	if stored, _ := db.Listings(); len(stored) != 0 {
		t.Fatalf("cancelled listing still stored")
	}
}

func TestMarketBuyPaysAISeller(t *testing.T) {
	r, db := newTestRoom(t, nil)
	bot := world.NewPlayer("ai_0", "ai_0", "Alice")
	bot.IsAI = true
	r.st.AddPlayer(bot)
	r.st.Give(bot, economy.ItemBread, 1)
	if !r.Handle("ai_0", protocol.MarketList{ItemID: economy.ItemBread, Quantity: 1, PricePerUnit: 8}) {
		t.Fatalf("AI listing rejected")
	}
	before := bot.Coins

	buyer := joinAt(t, r, "s1", "Bea", 1000, 1000)
	if !r.Handle("s1", protocol.MarketBuy{ListingID: r.st.Listings()[0].ID}) {
		t.Fatalf("buy rejected")
	}
	if bot.Coins != before+8 || buyer.Coins != r.cfg.World.StarterCoins-8 {
		t.Fatalf("coins: bot %d buyer %d", bot.Coins, buyer.Coins)
	}
	if len(r.st.Listings()) != 0 {
		t.Fatalf("sold-out listing still live")
	}
	if rec, err := db.GetPlayer("ai_0"); err != nil || rec != nil {
		t.Fatalf("AI seller persisted: %+v %v", rec, err)
	}
}
