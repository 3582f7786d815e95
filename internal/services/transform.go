package services

import "github.com/vanshpatelx/Opinex/internal/models"

// NormalizePrice restates an order on the YES axis used by the trading
// engine. A NO-side or SELL-side order becomes the equivalent YES order with
// the complementary price (MaxPrice - price) where needed.
func NormalizePrice(orderType models.OrderType, option models.Option, price int) (models.OrderType, int) {
	switch {
	case orderType == models.Buy && option == models.Yes:
		return models.Buy, price
	case orderType == models.Sell && option == models.Yes:
		return models.Buy, models.MaxPrice - price
	case orderType == models.Buy && option == models.No:
		return models.Sell, models.MaxPrice - price
	case orderType == models.Sell && option == models.No:
		return models.Sell, price
	}
	return orderType, price
}

// TradeOrderFor builds the trading-engine message for an order.
func TradeOrderFor(o models.Order) models.TradeOrder {
	side, price := NormalizePrice(o.OrderType, o.Option, o.Price)
	return models.TradeOrder{
		OrderID:   o.ID,
		EventID:   o.EventID,
		OrderType: side,
		Price:     price,
		Qty:       o.Qty,
	}
}
