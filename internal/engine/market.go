// Player market: escrowed listings bought one unit at a time.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/persistence"
	"github.com/talgya/hearthstead/internal/world"
)

// marketList moves qty units into escrow as a new listing.
func (r *Room) marketList(p *world.Player, item economy.ItemID, qty, price int) bool {
	if qty < 1 || price < 1 {
		return false
	}
	if !r.st.Take(p, item, qty) {
		return false
	}
	l := &world.Listing{
		ID:           "lst_" + uuid.NewString(),
		SellerID:     p.StableID,
		SellerName:   p.Name,
		ItemID:       item,
		Quantity:     qty,
		PricePerUnit: price,
	}
	r.st.AddListing(l)
	if err := r.store.SaveListing(persistence.ListingRecord{
		ID:           l.ID,
		SellerUUID:   l.SellerID,
		SellerName:   l.SellerName,
		ItemID:       l.ItemID,
		Quantity:     l.Quantity,
		PricePerUnit: l.PricePerUnit,
	}); err != nil {
		slog.Error("save listing", "id", l.ID, "error", err)
	}
	return true
}

// marketBuy buys exactly one unit. Coins leave the buyer before the seller
// is credited; an offline seller is paid through their stored record.
func (r *Room) marketBuy(p *world.Player, listingID string) bool {
	l := r.st.Listing(listingID)
	if l == nil || l.Quantity < 1 {
		return false
	}
	if l.SellerID == p.StableID || p.Coins < l.PricePerUnit {
		return false
	}

	r.st.AddCoins(p, -l.PricePerUnit)
	r.st.Give(p, l.ItemID, 1)
	r.payStable(l.SellerID, l.PricePerUnit)

	if left := l.Quantity - 1; left <= 0 {
		r.st.RemoveListing(l.ID)
		if err := r.store.DeleteListing(l.ID); err != nil {
			slog.Error("delete listing", "id", l.ID, "error", err)
		}
		r.EmitEvent("market", fmt.Sprintf("%s bought the last %s from %s", p.Name, l.ItemID, l.SellerName))
	} else {
		r.st.SetListingQuantity(l, left)
		if err := r.store.UpdateListingQuantity(l.ID, left); err != nil {
			slog.Error("update listing", "id", l.ID, "error", err)
		}
	}
	return true
}

// marketCancel returns the escrowed remainder to the seller.
func (r *Room) marketCancel(p *world.Player, listingID string) bool {
	l := r.st.Listing(listingID)
	if l == nil || l.SellerID != p.StableID {
		return false
	}
	r.st.Give(p, l.ItemID, l.Quantity)
	r.st.RemoveListing(l.ID)
	if err := r.store.DeleteListing(l.ID); err != nil {
		slog.Error("delete listing", "id", l.ID, "error", err)
	}
	return true
}
