package kite

import (
	"sync"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

type instrument struct {
	token int
	name  string
}

// instrumentMapper caches tradingsymbol -> instrument token for one exchange.
type instrumentMapper struct {
	mu       sync.RWMutex
	bySymbol map[string]instrument
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{bySymbol: make(map[string]instrument)}
}

func (im *instrumentMapper) load(list kiteconnect.Instruments) {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, in := range list {
		im.bySymbol[in.Tradingsymbol] = instrument{token: in.InstrumentToken, name: in.Name}
	}
}

func (im *instrumentMapper) lookup(symbol string) (instrument, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	inst, ok := im.bySymbol[symbol]
	return inst, ok
}
