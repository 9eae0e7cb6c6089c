package endpoint

import "runtime"

func keepAlive(values ...any) {
	for _, v := range values {
		runtime.KeepAlive(v)
	}
}
