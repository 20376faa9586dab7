// Package menu loads and validates the dessert catalog.
//
// The catalog is a CUE document validated against the embedded #Catalog
// schema, so a malformed deployment-supplied menu is rejected at startup
// with a position-carrying error instead of surfacing as odd behavior in
// the cart.
package menu

import (
	"embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"
)

//go:embed catalog.cue
var embedded embed.FS

// Catalog holds the selectable menu data consumed by the sending
// terminal. All names are NFC-normalized on load.
type Catalog struct {
	MilkshakeRegular []string `json:"milkshakeRegular"`
	MilkshakeGourmet []string `json:"milkshakeGourmet"`
	IceCreamFlavours []string `json:"iceCreamFlavours"`
	Cakes            []string `json:"cakes"`
	CakeSides        []string `json:"cakeSides"`
	ReadyOptions     []int    `json:"readyOptions"`
	ServiceTypes     []string `json:"serviceTypes"`
}

// LoadDefault parses the embedded catalog.
func LoadDefault() (*Catalog, error) {
	src, err := embedded.ReadFile("catalog.cue")
	if err != nil {
		return nil, fmt.Errorf("load default catalog: %w", err)
	}
	return parse(string(src), "catalog.cue")
}

// Load parses a catalog file from disk. The file must define a `catalog`
// value satisfying #Catalog; the schema itself may be restated or
// omitted.
func Load(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return parse(string(src), path)
}

// parse compiles the CUE source, validates the catalog value against the
// embedded schema and decodes it.
func parse(src, filename string) (*Catalog, error) {
	schema, err := embedded.ReadFile("catalog.cue")
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(string(schema), cue.Filename("catalog.cue"))
	if err := schemaVal.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Catalog"))

	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	catVal := v.LookupPath(cue.ParsePath("catalog"))
	if !catVal.Exists() {
		return nil, &SchemaError{
			Field:   "catalog",
			Message: "catalog value is required",
			Pos:     v.Pos(),
		}
	}

	unified := catVal.Unify(def)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cat Catalog
	if err := unified.Decode(&cat); err != nil {
		return nil, formatCUEError(err)
	}
	cat.normalize()
	return &cat, nil
}

// normalize applies NFC to every display name so lookups and stored
// documents agree on one byte representation.
func (c *Catalog) normalize() {
	for _, list := range [][]string{
		c.MilkshakeRegular, c.MilkshakeGourmet, c.IceCreamFlavours,
		c.Cakes, c.CakeSides, c.ServiceTypes,
	} {
		for i, s := range list {
			list[i] = norm.NFC.String(s)
		}
	}
}

// MilkshakeFlavour reports whether the flavour is on the menu and, if so,
// whether it is a gourmet flavour.
func (c *Catalog) MilkshakeFlavour(name string) (ok, gourmet bool) {
	name = norm.NFC.String(name)
	if slices.Contains(c.MilkshakeRegular, name) {
		return true, false
	}
	if slices.Contains(c.MilkshakeGourmet, name) {
		return true, true
	}
	return false, false
}

// IceCreamFlavour reports whether the flavour is on the menu.
func (c *Catalog) IceCreamFlavour(name string) bool {
	return slices.Contains(c.IceCreamFlavours, norm.NFC.String(name))
}

// Cake reports whether the cake is on the menu.
func (c *Catalog) Cake(name string) bool {
	return slices.Contains(c.Cakes, norm.NFC.String(name))
}

// CakeSide reports whether the side is on the menu.
func (c *Catalog) CakeSide(name string) bool {
	return slices.Contains(c.CakeSides, norm.NFC.String(name))
}

// ServiceType reports whether the service type is offered.
func (c *Catalog) ServiceType(name string) bool {
	return slices.Contains(c.ServiceTypes, norm.NFC.String(name))
}

// ReadyOption reports whether the ETA is one of the offered options.
func (c *Catalog) ReadyOption(mins int) bool {
	return slices.Contains(c.ReadyOptions, mins)
}

// SchemaError represents a catalog validation error with source position.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &SchemaError{
			Field:   "catalog",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
