//go:build !linux

package insert

func initDirect() error { return errDirectUnsupported }

func typeDirect(string) error { return errDirectUnsupported }
