package extension

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codecType = reflect.TypeFor[Codec]()

type trailingDefault interface{ Trailing() }
type blankDefault interface{ Blank() }

type badDefaultMulti interface{ Multi() }
type badDefaultName interface{ Invalid() }

func TestManager_Get(t *testing.T) {
	m, _ := codecManager(t)

	t.Run("rejects invalid types", func(t *testing.T) {
		_, err := m.Get(nil)
		assert.ErrorIs(t, err, ErrInvalidExtensionType)

		_, err = m.Get(reflect.TypeFor[xmlCodec]())
		assert.ErrorIs(t, err, ErrInvalidExtensionType)

		_, err = m.Get(reflect.TypeFor[Undeclared]())
		assert.ErrorIs(t, err, ErrInvalidExtensionType)
		assert.Contains(t, err.Error(), "never declared")
	})

	t.Run("returns the same registry", func(t *testing.T) {
		r1, err := m.Get(codecType)
		require.NoError(t, err)
		r2, err := m.Get(codecType)
		require.NoError(t, err)
		assert.Same(t, r1, r2)
		assert.Same(t, codecPoint, r1.Point())
	})

	t.Run("validates the default name", func(t *testing.T) {
		MustDeclarePoint[badDefaultMulti](WithDefault("a, b"))
		MustDeclarePoint[badDefaultName](WithDefault("not-valid"))

		for i := 0; i < 2; i++ {
			_, err := m.Get(reflect.TypeFor[badDefaultMulti]())
			assert.ErrorIs(t, err, ErrMultipleDefaults)

			_, err = m.Get(reflect.TypeFor[badDefaultName]())
			assert.ErrorIs(t, err, ErrInvalidName)
		}
	})

	t.Run("clear drops registries", func(t *testing.T) {
		r1, err := m.Get(codecType)
		require.NoError(t, err)
		m.Clear()
		r2, err := m.Get(codecType)
		require.NoError(t, err)
		assert.NotSame(t, r1, r2)
	})
}

func TestRegistry_Queries(t *testing.T) {
	m, _ := codecManager(t)
	r, err := m.Get(codecType)
	require.NoError(t, err)

	assert.True(t, r.HasExtension("json"))
	assert.True(t, r.HasExtension("XML"))
	assert.False(t, r.HasExtension("yaml"))
	assert.False(t, r.HasExtension("logging"), "wrappers are not extension names")
	assert.False(t, r.HasExtension("adaptive"), "adaptive is not an extension name")
	assert.False(t, r.HasExtension(""))

	assert.Equal(t, []string{"XML", "json", "xml"}, r.Names())
	assert.Equal(t, []string{"logging", "metric"}, r.Wrappers())
	assert.Equal(t, "json", r.DefaultName())
	assert.True(t, r.HasDefault())
	assert.Equal(t, PolicyPrototype, r.Policy())
	assert.NoError(t, r.Err())
	assert.Empty(t, r.Diagnostics())

	attrs, err := r.Attributes("json")
	require.NoError(t, err)
	assert.Equal(t, []string{"mime", "default"}, attrs.Keys())
	v, _ := attrs.Get("mime")
	assert.Equal(t, "application/json", v)

	attrs.Set("mutated", "1")
	again, err := r.Attributes("json")
	require.NoError(t, err)
	assert.False(t, again.Has("mutated"))

	_, err = r.Attributes("")
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = r.Attributes("yaml")
	assert.ErrorIs(t, err, ErrNoSuchExtension)

	all := r.AllAttributes()
	assert.Len(t, all, 3)
	assert.Equal(t, 0, all["xml"].Len())
}

func TestRegistry_MalformedLinesDoNotBlockLoading(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"test.Codec": strings.Join([]string{
			"=test.XML",
			"broken=test.Missing",
			"json=test.JSON",
			"bad-name=test.XML",
			"gzip=test.Gzip",
			"+nocopy=test.XML",
			"failing=test.Failing(",
			"xml=test.XML",
		}, "\n"),
		"test.Compressor": compressorDescriptor,
	})
	r, err := m.Get(codecType)
	require.NoError(t, err)

	assert.Equal(t, []string{"json", "xml"}, r.Names())
	assert.Empty(t, r.Wrappers())
	assert.NoError(t, r.Err(), "skipped lines are not fatal")

	diags := r.Diagnostics()
	require.Len(t, diags, 6)

	want := []struct {
		line int
		err  error
	}{
		{1, ErrMissingName},
		{2, ErrClassNotFound},
		{4, ErrInvalidName},
		{5, ErrNotASubtype},
		{6, ErrMissingCopyConstructor},
		{7, nil},
	}
	for i, w := range want {
		assert.Equal(t, w.line, diags[i].Line)
		assert.Equal(t, "test:extensions/test.Codec", diags[i].Resource)
		assert.Equal(t, "test.Codec", diags[i].Point)
		if w.err != nil {
			assert.ErrorIs(t, diags[i], w.err)
		}
	}

	t.Run("missing name cites the matching line", func(t *testing.T) {
		_, err := r.Extension(context.Background(), "broken")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoSuchExtension)
		assert.ErrorIs(t, err, ErrClassNotFound)
		assert.Contains(t, err.Error(), "broken=test.Missing")
	})

	t.Run("match is case insensitive", func(t *testing.T) {
		_, err := r.Extension(context.Background(), "BROKEN")
		assert.ErrorIs(t, err, ErrClassNotFound)
	})

	t.Run("unmatched name lists every cause", func(t *testing.T) {
		_, err := r.Extension(context.Background(), "yaml")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoSuchExtension)
		assert.False(t, errors.Is(err, ErrClassNotFound))
		assert.Contains(t, err.Error(), "possible causes")
		assert.Contains(t, err.Error(), "(1) =test.XML")
		assert.Contains(t, err.Error(), "(6) failing=test.Failing(")
	})
}

func TestRegistry_DuplicateLinesReportedOnce(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"test.Codec": "broken=test.Missing\nbroken=test.Missing\n",
	})
	r, err := m.Get(codecType)
	require.NoError(t, err)

	diags := r.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, 2, diags[0].Line)
}

func TestRegistry_DuplicateAdaptive(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"test.Codec": "*a=test.Adaptive\n*b=test.OtherAdaptive\n*c=test.Adaptive\nxml=test.XML\n",
	})
	r, err := m.Get(codecType)
	require.NoError(t, err)

	assert.ErrorIs(t, r.Err(), ErrDuplicateAdaptive)
	_, err = r.Adaptive(context.Background())
	assert.ErrorIs(t, err, ErrDuplicateAdaptive)

	require.Len(t, r.Diagnostics(), 1)
	assert.Equal(t, 2, r.Diagnostics()[0].Line)

	xml, err := r.Extension(context.Background(), "xml")
	require.NoError(t, err)
	assert.Equal(t, "xml(x)", xml.(Codec).Encode("x"))
}

func TestRegistry_DuplicateName(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"test.Codec": "xml=test.XML\nxml=test.XML(again)\nxml=test.Adaptive\n+w=test.Logging\n+w=test.Metric\n",
	})
	r, err := m.Get(codecType)
	require.NoError(t, err)

	err = r.Err()
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Contains(t, err.Error(), "test.Adaptive")
	assert.Contains(t, err.Error(), "test.Metric")

	attrs, err := r.Attributes("xml")
	require.NoError(t, err)
	assert.True(t, attrs.Has("again"), "redeclaring the same class replaces attributes")
	assert.Len(t, r.Diagnostics(), 2)
}

func TestRegistry_TrailingSeparators(t *testing.T) {
	MustDeclarePoint[trailingDefault](WithID("test.TrailingDefault"), WithDefault("a,"))
	MustDeclarePoint[blankDefault](WithID("test.BlankDefault"), WithDefault(" , "))
	m, _ := newTestManager(t, map[string]string{
		"test.Codec": "xml,XML,=test.XML\n",
	})

	r, err := m.Get(codecType)
	require.NoError(t, err)
	assert.Equal(t, []string{"XML", "xml"}, r.Names())
	assert.Empty(t, r.Diagnostics())

	trailing, err := m.Get(reflect.TypeFor[trailingDefault]())
	require.NoError(t, err)
	assert.Equal(t, "a", trailing.DefaultName())

	blank, err := m.Get(reflect.TypeFor[blankDefault]())
	require.NoError(t, err)
	assert.False(t, blank.HasDefault())
}

func TestRegistry_LongLineDoesNotStopLoading(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"test.Codec": "json=test.JSON\n# " + strings.Repeat("x", 2<<20) + "\nxml=test.XML\n",
	})
	r, err := m.Get(codecType)
	require.NoError(t, err)

	assert.True(t, r.HasExtension("json"))
	assert.True(t, r.HasExtension("xml"))
	assert.Empty(t, r.Diagnostics())
	assert.NoError(t, r.Err())
}

func TestRegistry_SourceFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	failing := SourceFunc(func(name string) ([]Resource, error) {
		return nil, errors.New("listing failed")
	})

	m := NewManager(
		WithLogger(logger),
		WithSources(NewFSSource().Add("test", testFS(map[string]string{"test.Codec": codecDescriptor})), failing),
	)
	r, err := m.Get(codecType)
	require.NoError(t, err)

	assert.Empty(t, r.Names())
	assert.ErrorIs(t, r.Err(), ErrLoadFailed)

	_, err = r.Extension(context.Background(), "json")
	assert.ErrorIs(t, err, ErrNoSuchExtension)
	assert.Contains(t, err.Error(), "listing failed")
}

func TestRegistry_UnreadableResourceSkipped(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	unreadable := SourceFunc(func(name string) ([]Resource, error) {
		return []Resource{{
			Location: "broken",
			Open:     func() (io.ReadCloser, error) { return nil, errors.New("permission denied") },
		}}, nil
	})

	m := NewManager(
		WithLogger(logger),
		WithSources(unreadable, NewFSSource().Add("test", testFS(map[string]string{"test.Codec": "xml=test.XML"}))),
	)
	r, err := m.Get(codecType)
	require.NoError(t, err)
	assert.Equal(t, []string{"xml"}, r.Names())
	assert.NoError(t, r.Err())
}

func TestRegistry_ConcurrentFirstLoad(t *testing.T) {
	m, _ := codecManager(t)

	const n = 64
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		regs  = make([]*Registry, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			r, err := m.Get(codecType)
			if err != nil {
				return
			}
			regs[i] = r
			r.HasExtension("json")
		}(i)
	}
	close(start)
	wg.Wait()

	for _, r := range regs {
		require.NotNil(t, r)
		assert.Same(t, regs[0], r)
	}
	assert.Equal(t, 1, regs[0].LoadCount())

	regs[0].Names()
	regs[0].Diagnostics()
	assert.Equal(t, 1, regs[0].LoadCount())
}

func TestRegistry_MultipleSourcesMerge(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := NewManager(
		WithLogger(logger),
		WithSources(NewFSSource().
			Add("first", testFS(map[string]string{"test.Codec": "xml=test.XML"})).
			Add("second", testFS(map[string]string{"test.Codec": "adaptive=test.Adaptive\nxml=test.Adaptive"})),
		),
	)
	r, err := m.Get(codecType)
	require.NoError(t, err)

	assert.Equal(t, []string{"adaptive", "xml"}, r.Names())
	assert.ErrorIs(t, r.Err(), ErrDuplicateName)
	require.Len(t, r.Diagnostics(), 1)
	assert.Equal(t, "second:extensions/test.Codec", r.Diagnostics()[0].Resource)
}
