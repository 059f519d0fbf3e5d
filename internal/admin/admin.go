// Package admin implements the store manager panel: an editable product draft
// with image ingestion, saved into the catalog as a create or an update.
package admin

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/domain/product"
)

// DefaultMaxImageBytes caps a single uploaded image.
const DefaultMaxImageBytes int64 = 4 << 20

// Panel errors.
var (
	ErrNoDraft       = errors.New("no product is being edited")
	ErrNotImage      = errors.New("uploaded file is not an image")
	ErrImageTooLarge = errors.New("uploaded image is too large")
	ErrImageIndex    = errors.New("image index out of range")
)

// Catalog is the subset of the shop the panel edits.
type Catalog interface {
	Product(id string) (product.Product, error)
	HasProduct(id string) bool
	AddProduct(ctx context.Context, p product.Product)
	UpdateProduct(ctx context.Context, p product.Product) bool
	DeleteProduct(ctx context.Context, id string) bool
	OnProductDeleted(fn func(ctx context.Context, id string)) error
}

// Options configure a Panel.
type Options struct {
	// Node generates unique ids for new products.
	Node          *snowflake.Node
	MaxImageBytes int64
	Logger        *zap.Logger
}

// Panel holds at most one draft. It is safe for concurrent use.
type Panel struct {
	catalog  Catalog
	node     *snowflake.Node
	maxImage int64
	lg       *zap.Logger

	mu    sync.Mutex
	draft *Draft
}

// New creates a Panel editing c. Deleting the product being edited, from the
// panel or elsewhere, discards the draft.
func New(c Catalog, opts Options) (*Panel, error) {
	p := &Panel{
		catalog:  c,
		node:     opts.Node,
		maxImage: opts.MaxImageBytes,
		lg:       opts.Logger,
	}
	if p.node == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return nil, errors.Wrap(err, "snowflake node")
		}
		p.node = node
	}
	if p.maxImage <= 0 {
		p.maxImage = DefaultMaxImageBytes
	}
	if p.lg == nil {
		p.lg = zap.NewNop()
	}
	if err := c.OnProductDeleted(p.discardIfEditing); err != nil {
		return nil, errors.Wrap(err, "subscribe deletions")
	}
	return p, nil
}

func (p *Panel) discardIfEditing(_ context.Context, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draft != nil && p.draft.ID == id {
		p.draft = nil
	}
}

// NewDraft starts editing a new product with default values.
func (p *Panel) NewDraft() Draft {
	d := Draft{
		ID:       "new_" + p.node.Generate().String(),
		Price:    decimal.Zero,
		Category: product.CategoryWatches,
		Stock:    1,
		Images:   []string{},
		Features: []string{},
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = &d
	return d.clone()
}

// Edit starts editing an existing catalog product.
func (p *Panel) Edit(id string) (Draft, error) {
	existing, err := p.catalog.Product(id)
	if err != nil {
		return Draft{}, err
	}
	d := Draft{
		ID:          existing.ID,
		Title:       existing.Title,
		Description: existing.Description,
		Price:       existing.Price,
		Category:    existing.Category,
		Stock:       existing.Stock,
		Images:      existing.Images,
		Features:    existing.Features,
		Existing:    true,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = &d
	return d.clone(), nil
}

// Draft returns the current draft.
func (p *Panel) Draft() (Draft, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draft == nil {
		return Draft{}, false
	}
	return p.draft.clone(), true
}

// Update applies patch to the draft.
func (p *Panel) Update(patch Patch) (Draft, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draft == nil {
		return Draft{}, ErrNoDraft
	}
	p.draft.apply(patch)
	return p.draft.clone(), nil
}

// Cancel discards the draft.
func (p *Panel) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = nil
}

// AddImage reads an uploaded file, checks that it is an image and appends it
// to the draft as a base64 data URL.
func (p *Panel) AddImage(r io.Reader) (Draft, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxImage+1))
	if err != nil {
		return Draft{}, errors.Wrap(err, "read image")
	}
	if int64(len(data)) > p.maxImage {
		return Draft{}, errors.Wrapf(ErrImageTooLarge, "limit %d bytes", p.maxImage)
	}
	url, err := DataURL(data)
	if err != nil {
		return Draft{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draft == nil {
		return Draft{}, ErrNoDraft
	}
	p.draft.Images = append(p.draft.Images, url)
	p.lg.Debug("Image added to draft", zap.String("id", p.draft.ID), zap.Int("bytes", len(data)))
	return p.draft.clone(), nil
}

// DataURL encodes data as a data URL after sniffing its MIME type. Non-image
// content is rejected.
func DataURL(data []byte) (string, error) {
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", errors.Wrapf(ErrNotImage, "detected %s", mime.String())
	}
	var b bytes.Buffer
	b.WriteString("data:")
	b.WriteString(mime.String())
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String(), nil
}

// RemoveImage drops the image at index i.
func (p *Panel) RemoveImage(i int) (Draft, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draft == nil {
		return Draft{}, ErrNoDraft
	}
	if i < 0 || i >= len(p.draft.Images) {
		return Draft{}, errors.Wrapf(ErrImageIndex, "%d", i)
	}
	p.draft.Images = append(p.draft.Images[:i:i], p.draft.Images[i+1:]...)
	return p.draft.clone(), nil
}

// Save validates the draft and writes it to the catalog. Ids already present
// in the catalog are updated, others are created. The draft is closed on
// success.
func (p *Panel) Save(ctx context.Context) (product.Product, bool, error) {
	d, ok := p.Draft()
	if !ok {
		return product.Product{}, false, ErrNoDraft
	}
	if err := d.Validate(); err != nil {
		return product.Product{}, false, err
	}

	out := d.Product()
	created := !p.catalog.HasProduct(out.ID)
	if created {
		p.catalog.AddProduct(ctx, out)
	} else {
		p.catalog.UpdateProduct(ctx, out)
	}

	p.mu.Lock()
	if p.draft != nil && p.draft.ID == out.ID {
		p.draft = nil
	}
	p.mu.Unlock()

	p.lg.Info("Product saved", zap.String("id", out.ID), zap.Bool("created", created))
	return out, created, nil
}

// Delete removes a product from the catalog. It reports false when id is
// unknown.
func (p *Panel) Delete(ctx context.Context, id string) bool {
	ok := p.catalog.DeleteProduct(ctx, id)
	if ok {
		p.lg.Info("Product deleted", zap.String("id", id))
	}
	return ok
}
