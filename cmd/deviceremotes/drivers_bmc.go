//go:build bmc

package main

import "github.com/mickp/deviceremotes/bmc"

func init() {
	extraDrivers["bmc"] = func(setup ObjSetup) (interface{}, error) {
		return bmc.Open(argString(setup.Args, "Serial"))
	}
}
