//go:build pvcam

package main

import "github.com/mickp/deviceremotes/pvcam"

func init() {
	extraDrivers["pvcam"] = func(setup ObjSetup) (interface{}, error) {
		return pvcam.New(argInt(setup.Args, "Index", 0)), nil
	}
}
