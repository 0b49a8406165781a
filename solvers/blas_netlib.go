//go:build netlib && cgo
// +build netlib,cgo

package solvers

/*
#cgo LDFLAGS: -lopenblas -lgfortran -lm -lpthread
#include <cblas.h>
*/
import "C"

import (
	jww "github.com/spf13/jwalterweatherman"
	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

func init() {
	blas64.Use(netblas.Implementation{})
	jww.INFO.Println("Using netlib to accelerate BLAS")
}
