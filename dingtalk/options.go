package dingtalk

import "time"

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

// WithExpirySkew provides an optional expiry skew (the safety margin
// subtracted from a token's expiry) for: Config, Token
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withExpirySkew = d
		case *tokenOptions:
			v.withExpirySkew = d
		}
	}
}

// WithNow provides an optional time source for: Config, Token.  Useful for
// testing expiry behavior.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withNowFunc = now
		case *tokenOptions:
			v.withNowFunc = now
		}
	}
}

// WithState provides an optional state value for Client.AuthURL.  When no
// state is provided, an opaque id is generated.
func WithState(s string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withState = s
		}
	}
}
