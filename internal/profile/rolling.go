package profile

// Rolling keeps the trailing window of a live (price, volume) feed and
// emits the histogram of that window after every push.
// Rows match what Histograms returns for the same series.
// Not safe for concurrent use.
type Rolling struct {
	params Params
	price  []float64
	volume []float64
	head   int // next write index
	size   int
}

// NewRolling creates a Rolling window for the given parameters.
func NewRolling(p Params) (*Rolling, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Rolling{
		params: p,
		price:  make([]float64, p.WindowSize),
		volume: make([]float64, p.WindowSize),
	}, nil
}

// Push appends one observation. It returns nil until the window is full.
func (r *Rolling) Push(price, volume float64) (*Histogram, error) {
	w := r.params.WindowSize
	r.price[r.head] = price
	r.volume[r.head] = volume
	r.head = (r.head + 1) % w
	if r.size < w {
		r.size++
	}
	if r.size < w {
		return nil, nil
	}

	// Chronological copy keeps volume accumulation order identical to the batch path.
	wp := make([]float64, 0, w)
	wv := make([]float64, 0, w)
	wp = append(append(wp, r.price[r.head:]...), r.price[:r.head]...)
	wv = append(append(wv, r.volume[r.head:]...), r.volume[:r.head]...)
	return r.params.histogram(wp, wv)
}

// Len returns the number of buffered observations.
func (r *Rolling) Len() int {
	return r.size
}

// Reset drops every buffered observation.
func (r *Rolling) Reset() {
	r.head = 0
	r.size = 0
}
