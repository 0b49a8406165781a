package ldu

// Interface couples the face cells of one patch to values living elsewhere:
// on another rank, or on another patch of the same mesh. The update is done
// in two phases so that every interface can post its data before any of them
// waits for its counterpart.
//
// Boundary coefficients are stored with the sign of a source term. The
// update subtracts coeffs[j]*pnf[j] from result[faceCells[j]], so callers
// that accumulate into a right hand side pass negated coefficients.
type Interface interface {
	// FaceCells returns the cell adjacent to each patch face.
	FaceCells() []int
	// InitInterfaceMatrixUpdate starts the transfer of psi on the face cells
	// and returns without waiting.
	InitInterfaceMatrixUpdate(psi, coeffs []float64)
	// UpdateInterfaceMatrix waits for the counterpart values pnf and applies
	// result[faceCells[j]] -= coeffs[j]*pnf[j].
	UpdateInterfaceMatrix(result, psi, coeffs []float64)
}

// InitMatrixInterfaces posts the transfer for every coupled interface.
func InitMatrixInterfaces(coeffs CoeffsList, interfaces Interfaces, psi []float64) {
	for k, intf := range interfaces {
		if intf != nil {
			intf.InitInterfaceMatrixUpdate(psi, coeffs[k])
		}
	}
}

// UpdateMatrixInterfaces completes the transfers posted by
// InitMatrixInterfaces, in the same order.
func UpdateMatrixInterfaces(coeffs CoeffsList, interfaces Interfaces, psi, result []float64) {
	for k, intf := range interfaces {
		if intf != nil {
			intf.UpdateInterfaceMatrix(result, psi, coeffs[k])
		}
	}
}
