package decode

import "golang.org/x/sys/unix"

func registerArch(r *Registry) {
	r.Register(unix.SYS_OPEN, Decoder{Name: "open", Decode: decodeOpen})
}
