//go:build !linux && !darwin

package rlimit

type unsupportedSys struct{}

// System returns a Syscaller that always fails with ErrUnsupported.
func System() Syscaller {
	return unsupportedSys{}
}

func (unsupportedSys) Get() (Limit, error) {
	return Limit{}, ErrUnsupported
}

func (unsupportedSys) Set(Limit) error {
	return ErrUnsupported
}
