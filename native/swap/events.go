package swap

import (
	"strconv"

	"github.com/Rhovian/spl-p2p/core/types"
)

const (
	EventTypeOrderCreated = "swap.order.created"
	EventTypeOrderAmended = "swap.order.amended"
	EventTypeTakerUpdated = "swap.order.taker_updated"
	EventTypeOrderSettled = "swap.order.settled"
	EventTypeOrderClosed  = "swap.order.closed"
)

// orderEvent adapts a typed event payload to the events.Emitter interface.
type orderEvent struct {
	evt *types.Event
}

func (e orderEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e orderEvent) Event() *types.Event { return e.evt }

// NewOrderCreatedEvent returns the canonical event payload for a newly
// created order.
func NewOrderCreatedEvent(addr types.Address, order *Order) *types.Event {
	return newOrderEvent(EventTypeOrderCreated, addr, order)
}

// NewOrderAmendedEvent returns the canonical event payload emitted when the
// order amounts change.
func NewOrderAmendedEvent(addr types.Address, order *Order) *types.Event {
	return newOrderEvent(EventTypeOrderAmended, addr, order)
}

// NewTakerUpdatedEvent returns the canonical event payload emitted when the
// counterparty is reassigned.
func NewTakerUpdatedEvent(addr types.Address, order *Order) *types.Event {
	return newOrderEvent(EventTypeTakerUpdated, addr, order)
}

// NewOrderSettledEvent returns the canonical event payload for a completed
// swap.
func NewOrderSettledEvent(addr types.Address, order *Order, taker types.Address) *types.Event {
	evt := newOrderEvent(EventTypeOrderSettled, addr, order)
	evt.Attributes["settledBy"] = taker.Hex()
	return evt
}

// NewOrderClosedEvent returns the canonical event payload emitted when the
// order record is destroyed, including any escrow refunded to the maker.
func NewOrderClosedEvent(addr types.Address, order *Order, refunded uint64) *types.Event {
	evt := newOrderEvent(EventTypeOrderClosed, addr, order)
	evt.Attributes["refunded"] = strconv.FormatUint(refunded, 10)
	return evt
}

func newOrderEvent(eventType string, addr types.Address, order *Order) *types.Event {
	attrs := make(map[string]string)
	if order != nil {
		attrs["order"] = addr.Hex()
		attrs["maker"] = order.Maker.Hex()
		attrs["taker"] = order.Taker.Hex()
		attrs["makerAsset"] = order.MakerAsset.Hex()
		attrs["takerAsset"] = order.TakerAsset.Hex()
		attrs["makerAmount"] = strconv.FormatUint(order.MakerAmount, 10)
		attrs["takerAmount"] = strconv.FormatUint(order.TakerAmount, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
