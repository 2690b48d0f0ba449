package irutil

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"
)

// CastSource returns the operand of a conversion instruction.
func CastSource(v any) (value.Value, bool) {
	switch c := v.(type) {
	case *ir.InstTrunc:
		return c.From, true
	case *ir.InstZExt:
		return c.From, true
	case *ir.InstSExt:
		return c.From, true
	case *ir.InstFPTrunc:
		return c.From, true
	case *ir.InstFPExt:
		return c.From, true
	case *ir.InstFPToUI:
		return c.From, true
	case *ir.InstFPToSI:
		return c.From, true
	case *ir.InstUIToFP:
		return c.From, true
	case *ir.InstSIToFP:
		return c.From, true
	case *ir.InstPtrToInt:
		return c.From, true
	case *ir.InstIntToPtr:
		return c.From, true
	case *ir.InstBitCast:
		return c.From, true
	case *ir.InstAddrSpaceCast:
		return c.From, true
	default:
		return nil, false
	}
}

// ConstCastSource returns the operand of a constant conversion expression.
func ConstCastSource(v any) (constant.Constant, bool) {
	switch c := v.(type) {
	case *constant.ExprTrunc:
		return c.From, true
	case *constant.ExprZExt:
		return c.From, true
	case *constant.ExprSExt:
		return c.From, true
	case *constant.ExprPtrToInt:
		return c.From, true
	case *constant.ExprIntToPtr:
		return c.From, true
	case *constant.ExprBitCast:
		return c.From, true
	case *constant.ExprAddrSpaceCast:
		return c.From, true
	default:
		return nil, false
	}
}

// IsCast reports whether v is a conversion instruction.
func IsCast(v any) bool {
	_, ok := CastSource(v)
	return ok
}
