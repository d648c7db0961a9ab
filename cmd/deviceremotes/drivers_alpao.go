//go:build alpao

package main

import "github.com/mickp/deviceremotes/alpao"

func init() {
	extraDrivers["alpao"] = func(setup ObjSetup) (interface{}, error) {
		return alpao.Open(argString(setup.Args, "Serial"))
	}
}
