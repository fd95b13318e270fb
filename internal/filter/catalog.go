// Package filter implements the filter engine: a fixed catalog of named
// looks, each an ordered list of elementary color adjustments, interpolated
// by an intensity in [0,100] and applied either as a CSS-style preview
// string or baked into pixels through a composed color matrix.
package filter

import "fmt"

// Op is one elementary color adjustment.
type Op string

const (
	OpBrightness Op = "brightness"
	OpContrast   Op = "contrast"
	OpSaturate   Op = "saturate"
	OpSepia      Op = "sepia"
	OpGrayscale  Op = "grayscale"
	OpHueRotate  Op = "hue-rotate"
)

// Adjustment pairs an operation with its target magnitude. Multiplicative
// ops (brightness, contrast, saturate) are neutral at 1.0; additive ops
// (sepia, grayscale) at 0.0; hue-rotate is in degrees, neutral at 0.
type Adjustment struct {
	Op        Op
	Magnitude float64
}

// Descriptor is one immutable catalog entry.
type Descriptor struct {
	ID            string
	DisplayName   string
	BaseTransform []Adjustment
}

// FilterID of the neutral identity entry.
const Normal = "normal"

// catalog order is presentation order; "normal" is always first.
var catalog = []Descriptor{
	{ID: Normal, DisplayName: "Normal", BaseTransform: nil},
	{ID: "clarendon", DisplayName: "Clarendon", BaseTransform: []Adjustment{
		{OpContrast, 1.2}, {OpSaturate, 1.35}}},
	{ID: "gingham", DisplayName: "Gingham", BaseTransform: []Adjustment{
		{OpBrightness, 1.05}, {OpHueRotate, -10}}},
	{ID: "moon", DisplayName: "Moon", BaseTransform: []Adjustment{
		{OpGrayscale, 1}, {OpContrast, 1.1}, {OpBrightness, 1.1}}},
	{ID: "lark", DisplayName: "Lark", BaseTransform: []Adjustment{
		{OpContrast, 0.9}, {OpBrightness, 1.1}, {OpSaturate, 1.1}}},
	{ID: "reyes", DisplayName: "Reyes", BaseTransform: []Adjustment{
		{OpSepia, 0.22}, {OpBrightness, 1.1}, {OpContrast, 0.85}, {OpSaturate, 0.75}}},
	{ID: "juno", DisplayName: "Juno", BaseTransform: []Adjustment{
		{OpContrast, 1.2}, {OpBrightness, 1.1}, {OpSaturate, 1.4}}},
	{ID: "slumber", DisplayName: "Slumber", BaseTransform: []Adjustment{
		{OpSaturate, 0.66}, {OpBrightness, 1.05}}},
	{ID: "crema", DisplayName: "Crema", BaseTransform: []Adjustment{
		{OpSepia, 0.5}, {OpContrast, 1.25}, {OpBrightness, 1.15}, {OpSaturate, 0.9}, {OpHueRotate, -2}}},
	{ID: "ludwig", DisplayName: "Ludwig", BaseTransform: []Adjustment{
		{OpBrightness, 1.05}, {OpContrast, 1.05}, {OpSaturate, 2}}},
	{ID: "aden", DisplayName: "Aden", BaseTransform: []Adjustment{
		{OpHueRotate, -20}, {OpContrast, 0.9}, {OpSaturate, 0.85}, {OpBrightness, 1.2}}},
	{ID: "perpetua", DisplayName: "Perpetua", BaseTransform: []Adjustment{
		{OpContrast, 1.1}, {OpBrightness, 1.25}, {OpSaturate, 1.1}}},
	{ID: "amaro", DisplayName: "Amaro", BaseTransform: []Adjustment{
		{OpHueRotate, -10}, {OpContrast, 0.9}, {OpBrightness, 1.1}, {OpSaturate, 1.5}}},
	{ID: "mayfair", DisplayName: "Mayfair", BaseTransform: []Adjustment{
		{OpContrast, 1.1}, {OpSaturate, 1.1}}},
	{ID: "rise", DisplayName: "Rise", BaseTransform: []Adjustment{
		{OpBrightness, 1.05}, {OpSepia, 0.2}, {OpContrast, 0.9}, {OpSaturate, 0.9}}},
	{ID: "hudson", DisplayName: "Hudson", BaseTransform: []Adjustment{
		{OpBrightness, 1.2}, {OpContrast, 0.9}, {OpSaturate, 1.1}, {OpHueRotate, -15}}},
	{ID: "valencia", DisplayName: "Valencia", BaseTransform: []Adjustment{
		{OpContrast, 1.08}, {OpBrightness, 1.08}, {OpSepia, 0.08}}},
	{ID: "xpro2", DisplayName: "X-Pro II", BaseTransform: []Adjustment{
		{OpSepia, 0.3}, {OpContrast, 1.2}, {OpSaturate, 1.3}}},
	{ID: "sierra", DisplayName: "Sierra", BaseTransform: []Adjustment{
		{OpContrast, 0.95}, {OpSaturate, 0.75}, {OpSepia, 0.25}}},
	{ID: "willow", DisplayName: "Willow", BaseTransform: []Adjustment{
		{OpGrayscale, 0.5}, {OpContrast, 0.95}, {OpBrightness, 0.9}}},
	{ID: "lofi", DisplayName: "Lo-Fi", BaseTransform: []Adjustment{
		{OpSaturate, 1.1}, {OpContrast, 1.5}}},
	{ID: "inkwell", DisplayName: "Inkwell", BaseTransform: []Adjustment{
		{OpSepia, 0.3}, {OpContrast, 1.1}, {OpBrightness, 1.1}, {OpGrayscale, 1}}},
	{ID: "hefe", DisplayName: "Hefe", BaseTransform: []Adjustment{
		{OpContrast, 1.5}, {OpSaturate, 1.4}}},
	{ID: "nashville", DisplayName: "Nashville", BaseTransform: []Adjustment{
		{OpSepia, 0.2}, {OpContrast, 1.2}, {OpBrightness, 1.05}, {OpSaturate, 1.2}}},
}

var byID = func() map[string]*Descriptor {
	m := make(map[string]*Descriptor, len(catalog))
	for i := range catalog {
		m[catalog[i].ID] = &catalog[i]
	}
	return m
}()

// Entry is a catalog listing item.
type Entry struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// List returns all filters in presentation order.
func List() []Entry {
	out := make([]Entry, len(catalog))
	for i, d := range catalog {
		out[i] = Entry{ID: d.ID, DisplayName: d.DisplayName}
	}
	return out
}

// Describe returns the catalog entry for id. An unknown id is a programmer
// error and panics rather than silently falling back.
func Describe(id string) Descriptor {
	d, ok := byID[id]
	if !ok {
		panic(fmt.Sprintf("filter: unknown filter id %q", id))
	}
	return *d
}

// Known reports whether id is in the catalog. Callers validating external
// input should check this before Describe.
func Known(id string) bool {
	_, ok := byID[id]
	return ok
}
