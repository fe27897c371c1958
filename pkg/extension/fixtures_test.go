package extension

import (
	"errors"
	"io"
	"path"
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type Codec interface {
	Encode(s string) string
}

type Compressor interface {
	Compress(s string) string
}

type Alpha interface{ A() string }
type Beta interface{ B() string }

// Undeclared is an interface that is never declared as an extension point.
type Undeclared interface{ Nothing() }

type jsonCodec struct {
	comp  Compressor
	self  Codec
	label string
}

func (c *jsonCodec) Encode(s string) string {
	if c.comp != nil {
		s = c.comp.Compress(s)
	}
	return "json(" + s + ")"
}

type xmlCodec struct{}

func (xmlCodec) Encode(s string) string { return "xml(" + s + ")" }

type adaptiveCodec struct{}

func (adaptiveCodec) Encode(s string) string { return "adaptive(" + s + ")" }

type otherAdaptiveCodec struct{}

func (otherAdaptiveCodec) Encode(s string) string { return "other(" + s + ")" }

type loggingCodec struct{ inner Codec }

func (c *loggingCodec) Encode(s string) string { return "log(" + c.inner.Encode(s) + ")" }

type metricCodec struct{ inner Codec }

func (c *metricCodec) Encode(s string) string { return "metric(" + c.inner.Encode(s) + ")" }

type failingCodec struct{}

func (failingCodec) Encode(s string) string { return s }

type panickingCodec struct{}

func (panickingCodec) Encode(s string) string { return s }

type setterPanicCodec struct{}

func (*setterPanicCodec) Encode(s string) string { return s }

type gzipCompressor struct{}

func (gzipCompressor) Compress(s string) string { return "gz:" + s }

type snappyCompressor struct{}

func (snappyCompressor) Compress(s string) string { return "snappy:" + s }

type alphaImpl struct{ beta Beta }

func (a *alphaImpl) A() string { return "a" }

type betaImpl struct{ alpha Alpha }

func (b *betaImpl) B() string { return "b" }

var errBoom = errors.New("boom")

var (
	codecPoint      = MustDeclarePoint[Codec](WithID("test.Codec"), WithDefault("json"))
	compressorPoint = MustDeclarePoint[Compressor](WithID("test.Compressor"), WithDefault("gzip"))
	alphaPoint      = MustDeclarePoint[Alpha](WithID("test.Alpha"), WithDefault("a"))
	betaPoint       = MustDeclarePoint[Beta](WithID("test.Beta"), WithDefault("b"))
)

func init() {
	MustRegisterClass("test.JSON",
		Constructor(func() *jsonCodec { return &jsonCodec{} }),
		Setter(func(c *jsonCodec, comp Compressor) { c.comp = comp }),
		Setter(func(c *jsonCodec, self Codec) { c.self = self }),
		Setter(func(c *jsonCodec, u Undeclared) {}),
		Setter(func(c *jsonCodec, label string) { c.label = label }),
	)
	MustRegisterClass("test.XML", Constructor(func() xmlCodec { return xmlCodec{} }))
	MustRegisterClass("test.Adaptive", Constructor(func() adaptiveCodec { return adaptiveCodec{} }))
	MustRegisterClass("test.OtherAdaptive", Constructor(func() otherAdaptiveCodec { return otherAdaptiveCodec{} }))
	MustRegisterClass("test.Logging",
		CopyConstructor(func(inner Codec) *loggingCodec { return &loggingCodec{inner: inner} }),
	)
	MustRegisterClass("test.Metric",
		CopyConstructor(func(inner Codec) *metricCodec { return &metricCodec{inner: inner} }),
	)
	MustRegisterClass("test.Failing",
		FallibleConstructor(func() (failingCodec, error) { return failingCodec{}, errBoom }),
	)
	MustRegisterClass("test.Panicking",
		Constructor(func() panickingCodec { panic("constructor exploded") }),
	)
	MustRegisterClass("test.SetterPanics",
		Constructor(func() *setterPanicCodec { return &setterPanicCodec{} }),
		Setter(func(c *setterPanicCodec, comp Compressor) { panic("setter exploded") }),
	)
	MustRegisterClass("test.Gzip", Constructor(func() gzipCompressor { return gzipCompressor{} }))
	MustRegisterClass("test.Snappy", Constructor(func() snappyCompressor { return snappyCompressor{} }))
	MustRegisterClass("test.AlphaImpl",
		Constructor(func() *alphaImpl { return &alphaImpl{} }),
		Setter(func(a *alphaImpl, b Beta) { a.beta = b }),
	)
	MustRegisterClass("test.BetaImpl",
		Constructor(func() *betaImpl { return &betaImpl{} }),
		Setter(func(b *betaImpl, a Alpha) { b.alpha = a }),
	)
}

const (
	codecDescriptor = `# codecs
json=test.JSON(mime=application/json,default)
xml , XML = test.XML
*adaptive=test.Adaptive
+logging=test.Logging
+metric=test.Metric
`
	compressorDescriptor = `gzip=test.Gzip
snappy=test.Snappy(fast)
`
)

func testFS(descriptors map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for id, body := range descriptors {
		fsys[path.Join(DescriptorDir, id)] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

// newTestManager returns an isolated manager reading only descriptors, with
// a captured logger.
func newTestManager(t *testing.T, descriptors map[string]string, opts ...ManagerOption) (*Manager, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(io.Discard)

	base := []ManagerOption{
		WithSources(NewFSSource().Add("test", testFS(descriptors))),
		WithLogger(logger),
	}
	return NewManager(append(base, opts...)...), hook
}

func codecManager(t *testing.T, opts ...ManagerOption) (*Manager, *logtest.Hook) {
	return newTestManager(t, map[string]string{
		"test.Codec":      codecDescriptor,
		"test.Compressor": compressorDescriptor,
	}, opts...)
}
