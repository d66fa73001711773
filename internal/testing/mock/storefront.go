package mock

import (
	"encoding/json"
	"net/http"
	"sync"
)

// line is one cart line in the fake storefront.
type line struct {
	quantity   int
	priceMinor int64
}

// Storefront is an in-memory storefront cart that serves the AJAX cart API
// (/cart.js, /cart/add.js, /cart/change.js). Tests drive the cart total by
// setting lines directly and inspect the mutation calls the engine issued.
// Product ids must be numeric, as they are on real storefronts.
type Storefront struct {
	mu sync.Mutex

	token   string
	lines   map[string]*line
	order   []string
	catalog map[string]int64

	failRead   bool
	failAdd    map[string]bool
	failRemove map[string]bool

	addCalls    map[string]int
	removeCalls map[string]int
	reads       int
}

// NewStorefront creates an empty cart with the given token.
func NewStorefront(token string) *Storefront {
	return &Storefront{
		token:       token,
		lines:       make(map[string]*line),
		catalog:     make(map[string]int64),
		failAdd:     make(map[string]bool),
		failRemove:  make(map[string]bool),
		addCalls:    make(map[string]int),
		removeCalls: make(map[string]int),
	}
}

// SetPrice sets the unit price used when productID is added through the API.
// Products without a price are free, like most gift items.
func (s *Storefront) SetPrice(productID string, priceMinor int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[productID] = priceMinor
}

// SetLine puts a line in the cart directly, bypassing the API. A zero quantity
// removes the line.
func (s *Storefront) SetLine(productID string, quantity int, priceMinor int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLineLocked(productID, quantity, priceMinor)
}

// MerchandiseID is the product id SetMerchandise uses for the shopper's own
// goods.
const MerchandiseID = "9000000001"

// SetMerchandise replaces the shopper's own merchandise with a single line
// worth totalMinor, leaving other lines alone. Zero empties it.
func (s *Storefront) SetMerchandise(totalMinor int64) {
	if totalMinor == 0 {
		s.SetLine(MerchandiseID, 0, 0)
		return
	}
	s.SetLine(MerchandiseID, 1, totalMinor)
}

func (s *Storefront) setLineLocked(productID string, quantity int, priceMinor int64) {
	if quantity <= 0 {
		if _, ok := s.lines[productID]; ok {
			delete(s.lines, productID)
			for i, id := range s.order {
				if id == productID {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		return
	}
	if l, ok := s.lines[productID]; ok {
		l.quantity = quantity
		l.priceMinor = priceMinor
		return
	}
	s.lines[productID] = &line{quantity: quantity, priceMinor: priceMinor}
	s.order = append(s.order, productID)
}

// FailReads makes every cart read fail with a 500.
func (s *Storefront) FailReads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRead = fail
}

// FailAdd makes adds of productID fail with a 422.
func (s *Storefront) FailAdd(productID string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAdd[productID] = fail
}

// FailRemove makes removals of productID fail with a 422.
func (s *Storefront) FailRemove(productID string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRemove[productID] = fail
}

// Quantity returns the quantity of productID in the cart.
func (s *Storefront) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lines[productID]; ok {
		return l.quantity
	}
	return 0
}

// AddCalls returns how many add requests were made for productID.
func (s *Storefront) AddCalls(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCalls[productID]
}

// RemoveCalls returns how many removal requests were made for productID.
func (s *Storefront) RemoveCalls(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeCalls[productID]
}

// Reads returns how many times the cart was read.
func (s *Storefront) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Handler returns the HTTP handler serving the cart API.
func (s *Storefront) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart.js", s.handleRead)
	mux.HandleFunc("POST /cart/add.js", s.handleAdd)
	mux.HandleFunc("POST /cart/change.js", s.handleChange)
	return mux
}

type cartItemJSON struct {
	ID       json.Number `json:"id"`
	Quantity int         `json:"quantity"`
	Price    int64       `json:"price"`
}

type cartJSON struct {
	Token      string         `json:"token"`
	TotalPrice int64          `json:"total_price"`
	ItemCount  int            `json:"item_count"`
	Items      []cartItemJSON `json:"items"`
}

type mutationJSON struct {
	ID       json.Number `json:"id"`
	Quantity int         `json:"quantity"`
}

func (s *Storefront) handleRead(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.reads++
	if s.failRead {
		s.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "cart unavailable"})
		return
	}
	body := s.cartLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

func (s *Storefront) cartLocked() cartJSON {
	out := cartJSON{Token: s.token, Items: []cartItemJSON{}}
	for _, id := range s.order {
		l := s.lines[id]
		out.TotalPrice += l.priceMinor * int64(l.quantity)
		out.ItemCount += l.quantity
		out.Items = append(out.Items, cartItemJSON{ID: json.Number(id), Quantity: l.quantity, Price: l.priceMinor})
	}
	return out
}

func (s *Storefront) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req mutationJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	id := req.ID.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCalls[id]++

	if s.failAdd[id] {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"message":     "Cart Error",
			"description": "The product is sold out.",
		})
		return
	}

	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}
	price := s.catalog[id]
	if l, ok := s.lines[id]; ok {
		qty += l.quantity
		price = l.priceMinor
	}
	s.setLineLocked(id, qty, price)

	writeJSON(w, http.StatusOK, mutationJSON{ID: req.ID, Quantity: qty})
}

func (s *Storefront) handleChange(w http.ResponseWriter, r *http.Request) {
	var req mutationJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	id := req.ID.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Quantity == 0 {
		s.removeCalls[id]++
		if s.failRemove[id] {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Cart Error"})
			return
		}
	}

	l, ok := s.lines[id]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message":     "no valid id or line parameter",
			"description": "no valid id or line parameter",
		})
		return
	}
	s.setLineLocked(id, req.Quantity, l.priceMinor)

	writeJSON(w, http.StatusOK, s.cartLocked())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
