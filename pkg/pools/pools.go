// Package pools recycles scratch slices used on hot numerical paths.
//
//   - Float64Pool: size-class pooling for []float64 row buffers
package pools
