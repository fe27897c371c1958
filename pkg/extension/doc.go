// Package extension is a named-extension container.
//
// An extension point is an interface declared with DeclarePoint. Its
// implementations are registered in a process wide class table with
// RegisterClass and bound to names by descriptor files (see package
// descriptor) found under "extensions/<point id>" in one or more sources.
//
// Descriptors are read lazily, once per point, the first time the point's
// Registry is queried. Lines that fail to resolve are recorded as
// diagnostics and never stop the remaining lines from loading.
//
// Creating an extension constructs it, injects every setter whose parameter
// is itself a declared extension point and applies the requested wrappers:
//
//	var _ = extension.MustDeclarePoint[Codec](extension.WithDefault("json"))
//
//	func init() {
//		extension.MustRegisterClass("github.com/acme/codec.JSON",
//			extension.Constructor(func() *JSON { return &JSON{} }),
//			extension.Setter(func(c *JSON, comp Compressor) { c.comp = comp }),
//		)
//		extension.MustRegisterClass("github.com/acme/codec.Logging",
//			extension.CopyConstructor(func(inner Codec) *Logging { return &Logging{inner: inner} }),
//		)
//		extension.AddSource("codec", descriptors) // embed.FS with extensions/
//	}
//
//	codecs := extension.MustFor[Codec]()
//	c, err := codecs.Extension(ctx, "json",
//		extension.WithProperties(extension.Properties{"github.com/acme/codec.Compressor": "gzip"}),
//		extension.WithWrappers("logging"),
//	)
//
// Dependencies are chosen by Properties keyed by the dependency's point
// identifier and otherwise fall back to the dependency's default name.
// Instances are fresh per request unless the point or manager uses
// PolicySingleton, in which case the injected base instance is cached per
// name and wrappers are still applied per request.
package extension
