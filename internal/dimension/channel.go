// Package dimension derives business reporting dimensions from raw export
// fields: sales channel, Walmart channel, and the Saturday-start fiscal
// calendar. Every function here is pure and total: unrecognized input falls
// through to a documented default, never an error.
package dimension

import "strings"

// Channel names produced by SalesChannel.
const (
	ChannelManualSales       = "Manual Sales"
	ChannelDirectLiquidation = "DirectLiquidation"
	ChannelWhatNot           = "WhatNot"
	ChannelVIPOutlet         = "VIPOutlet"
	ChannelLocalPickup       = "Local Pickup"
	ChannelEBay              = "eBay"
	ChannelEBayAuction       = "eBay Auction"
)

// Walmart channel names produced by WalmartChannel.
const (
	WalmartB2CRestock       = "B2C Restock"
	WalmartB2CResale        = "B2C Resale"
	WalmartB2BFinishedGoods = "B2B Finished Goods"
	WalmartB2BPallet        = "B2B Pallet"
)

// restockMarketplaces identify orders fulfilled back into Walmart retail.
var restockMarketplaces = []string{
	"walmart in store",
	"walmart marketplace",
	"walmart dsv",
}

// ChannelInput carries the raw fields the channel rules read.
type ChannelInput struct {
	Marketplace string
	OrderType   string
	AuctionFlag string // explicit auction marker from the export
	B2CAuction  string // "TRUE"/"FALSE" style column
	SortingIdx  string
}

// SalesChannel maps a marketplace value to its reporting channel. Checks run
// in order, first match wins; an unmatched non-blank marketplace passes
// through unmodified.
func SalesChannel(in ChannelInput) string {
	m := strings.TrimSpace(in.Marketplace)
	lower := strings.ToLower(m)

	switch {
	case m == "":
		return ChannelManualSales
	case strings.Contains(lower, "dl"):
		return ChannelDirectLiquidation
	case strings.Contains(lower, "whatnot"), strings.Contains(lower, "flashfindz"):
		return ChannelWhatNot
	case strings.Contains(lower, "shopify"):
		return ChannelVIPOutlet
	case strings.Contains(lower, "manual"):
		return ChannelLocalPickup
	case strings.Contains(lower, "daily deals"):
		return ChannelEBay
	case isAuction(in.AuctionFlag), isTrue(in.B2CAuction) && strings.EqualFold(m, "eBay"):
		return ChannelEBayAuction
	default:
		return m
	}
}

// WalmartChannel classifies an order top-down, first match wins.
func WalmartChannel(in ChannelInput) string {
	lower := strings.ToLower(in.Marketplace)
	for _, kw := range restockMarketplaces {
		if strings.Contains(lower, kw) {
			return WalmartB2CRestock
		}
	}
	if strings.TrimSpace(in.OrderType) == "B2CMarketplace" {
		return WalmartB2CResale
	}
	if strings.TrimSpace(in.SortingIdx) == "" {
		return WalmartB2BFinishedGoods
	}
	return WalmartB2BPallet
}

// isAuction reports whether the export's auction marker is set. The exports
// carry either the literal word or a boolean-ish value.
func isAuction(flag string) bool {
	f := strings.ToLower(strings.TrimSpace(flag))
	switch f {
	case "auction", "true", "t", "yes", "y", "1":
		return true
	}
	return false
}

func isTrue(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "TRUE")
}
