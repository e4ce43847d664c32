package vm

import (
	"fmt"
	"time"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/lumenerr"
	"github.com/lumen-lang/lumen/internal/value"
)

// run is the dispatch loop. It drives whatever frame is on top of
// vm.frames until the stack drains back down to stopAtLen (a normal
// return, halted=true), an OpYield suspends the running generator
// (halted=false, err=nil), or an error escapes every catch point down
// to stopAtLen. An ordinary bytecode Call never recurses into run: the
// new frame is pushed onto the same vm.frames and this same loop just
// keeps going, which is what lets OpYield suspend by simply returning
// with every frame still intact for the next call to resume (spec
// §4.8.5 "sub-VM").
func (vm *VM) run(stopAtLen int) (value.Value, bool, error) {
	for len(vm.frames) > stopAtLen {
		f := vm.frame
		code := f.proto.Code
		ip := int(f.ip)
		span := f.proto.Debug.Span(ip)

		if vm.hasDeadline && !time.Now().Before(vm.deadline) {
			err := &lumenerr.TimeoutError{Span: span}
			if vm.unwind(err) {
				continue
			}
			return value.Null, true, err
		}

		op := bytecode.Op(code[ip])

		switch op {
		case bytecode.OpLoadNull:
			vm.setReg(code[ip+1], value.Null)
			f.ip += 2

		case bytecode.OpLoadTrue:
			vm.setReg(code[ip+1], value.Bool(true))
			f.ip += 2

		case bytecode.OpLoadFalse:
			vm.setReg(code[ip+1], value.Bool(false))
			f.ip += 2

		case bytecode.OpLoadInt:
			vm.setReg(code[ip+1], value.Int(int64(bytecode.ReadI32(code, ip+2))))
			f.ip += 6

		case bytecode.OpLoadConst:
			c := f.proto.Constants.Get(ast.ConstIndex(bytecode.ReadU24(code, ip+2)))
			vm.setReg(code[ip+1], constValue(c))
			f.ip += 5

		case bytecode.OpMove:
			vm.setReg(code[ip+1], vm.reg(code[ip+2]))
			f.ip += 3

		case bytecode.OpGetCapture:
			vm.setReg(code[ip+1], f.captures[code[ip+2]])
			f.ip += 3

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			dst, lhs, rhs := code[ip+1], vm.reg(code[ip+2]), vm.reg(code[ip+3])
			f.ip += 4
			v, err := binOp(op, vm, lhs, rhs)
			if err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}
			vm.setReg(dst, v)

		case bytecode.OpNeg:
			src := vm.reg(code[ip+2])
			f.ip += 3
			v, err := value.Neg(vm, src)
			if err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}
			vm.setReg(code[ip+1], v)

		case bytecode.OpNot:
			src := vm.reg(code[ip+2])
			f.ip += 3
			v, err := value.Not(vm, src)
			if err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}
			vm.setReg(code[ip+1], v)

		case bytecode.OpEq, bytecode.OpNotEq, bytecode.OpLess, bytecode.OpLessEq, bytecode.OpGreater, bytecode.OpGreaterEq:
			dst, lhs, rhs := code[ip+1], vm.reg(code[ip+2]), vm.reg(code[ip+3])
			f.ip += 4
			b, err := cmpOp(op, vm, lhs, rhs)
			if err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}
			vm.setReg(dst, value.Bool(b))

		case bytecode.OpJump:
			rel := bytecode.ReadI32(code, ip+1)
			f.ip = int32(ip+1+4) + rel

		case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
			cond := vm.reg(code[ip+1]).Truthy()
			want := op == bytecode.OpJumpIfTrue
			if cond == want {
				rel := bytecode.ReadI32(code, ip+2)
				f.ip = int32(ip+2+4) + rel
			} else {
				f.ip += 6
			}

		case bytecode.OpMakeList, bytecode.OpMakeTuple:
			dst, count, first := code[ip+1], code[ip+2], code[ip+3]
			elems := make([]value.Value, count)
			for i := byte(0); i < count; i++ {
				elems[i] = vm.reg(first + i)
			}
			if op == bytecode.OpMakeList {
				vm.setReg(dst, value.ListOf(elems))
			} else {
				vm.setReg(dst, value.TupleOf(elems))
			}
			f.ip += 4

		case bytecode.OpMakeMap:
			dst, count, first := code[ip+1], code[ip+2], code[ip+3]
			m := value.MapOf()
			guard := m.Map().BorrowMut()
			for i := byte(0); i < count; i++ {
				key := vm.reg(first + 2*i)
				val := vm.reg(first + 2*i + 1)
				if key.Tag == value.TagString && len(key.Str) > 0 && key.Str[0] == '@' {
					guard.Value().Meta.Set(key.Str[1:], val)
				} else {
					guard.Value().Set(key, val)
				}
			}
			guard.Release()
			vm.setReg(dst, m)
			f.ip += 4

		case bytecode.OpMakeRange:
			dst, startReg, endReg, inclusive := code[ip+1], code[ip+2], code[ip+3], code[ip+4] != 0
			var start, end int64
			hasStart := startReg != noOperand
			hasEnd := endReg != noOperand
			if hasStart {
				start = vm.reg(startReg).AsInt()
			}
			if hasEnd {
				end = vm.reg(endReg).AsInt()
			}
			vm.setReg(dst, value.MakeRange(start, hasStart, end, hasEnd, inclusive))
			f.ip += 5

		case bytecode.OpIndex:
			dst, obj, key := code[ip+1], vm.reg(code[ip+2]), vm.reg(code[ip+3])
			f.ip += 4
			v, err := vm.indexGet(obj, key)
			if err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}
			vm.setReg(dst, v)

		case bytecode.OpSetIndex:
			obj, key, val := vm.reg(code[ip+1]), vm.reg(code[ip+2]), vm.reg(code[ip+3])
			f.ip += 4
			if err := vm.indexSet(obj, key, val); err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}

		case bytecode.OpGetField:
			dst, obj := code[ip+1], vm.reg(code[ip+2])
			name := f.proto.Constants.Get(ast.ConstIndex(bytecode.ReadU24(code, ip+3))).Str
			f.ip += 6
			v, err := vm.fieldGet(obj, name)
			if err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}
			vm.setReg(dst, v)

		case bytecode.OpSetField:
			obj := vm.reg(code[ip+1])
			name := f.proto.Constants.Get(ast.ConstIndex(bytecode.ReadU24(code, ip+2))).Str
			val := vm.reg(code[ip+5])
			f.ip += 6
			if err := vm.fieldSet(obj, name, val); err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}

		case bytecode.OpMakeFunction:
			dst := code[ip+1]
			protoIdx := bytecode.ReadU24(code, ip+2)
			count, first := code[ip+5], code[ip+6]
			proto := f.proto.Protos[protoIdx]
			captures := make([]value.Value, count)
			for i := byte(0); i < count; i++ {
				captures[i] = vm.reg(first + i)
			}
			vm.setReg(dst, value.MakeFunction(proto, captures))
			f.ip += 7

		case bytecode.OpCall:
			dst, calleeReg, argCount, firstArg := code[ip+1], code[ip+2], code[ip+3], code[ip+4]
			callee := vm.reg(calleeReg)
			args := make([]value.Value, argCount)
			for i := byte(0); i < argCount; i++ {
				args[i] = vm.reg(firstArg + i)
			}
			f.ip += 5
			if err := vm.doCall(callee, args, dst, span); err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}

		case bytecode.OpReturn:
			srcByte := code[ip+1]
			var ret value.Value
			if srcByte != noOperand {
				ret = vm.reg(srcByte)
			}
			dstReg := f.dstReg
			vm.popFrame()
			if len(vm.frames) <= stopAtLen {
				return ret, true, nil
			}
			vm.setReg(dstReg, ret)

		case bytecode.OpHalt:
			dstReg := f.dstReg
			vm.popFrame()
			if len(vm.frames) <= stopAtLen {
				return value.Null, true, nil
			}
			vm.setReg(dstReg, value.Null)

		case bytecode.OpMakeIterator:
			dst, src := code[ip+1], vm.reg(code[ip+2])
			f.ip += 3
			if src.Tag == value.TagRange && !src.Range().HasEnd {
				err := vm.wrapErr(span, fmt.Errorf("unbounded range used as iterator"))
				if vm.unwind(err) {
					continue
				}
				return value.Null, true, err
			}
			it, err := value.MakeIterator(vm, src)
			if err != nil {
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}
			vm.setReg(dst, value.MakeIteratorValue(it))

		case bytecode.OpIterNext:
			dst, iterReg := code[ip+1], code[ip+2]
			it, ok := vm.reg(iterReg).Obj.(value.Iterator)
			if !ok {
				f.ip += 7
				err := vm.runtimeErrf(span, "value is not an iterator")
				if vm.unwind(err) {
					continue
				}
				return value.Null, true, err
			}
			v, has, err := it.Next(vm)
			if err != nil {
				f.ip += 7
				if vm.unwind(vm.wrapErr(span, err)) {
					continue
				}
				return value.Null, true, vm.wrapErr(span, err)
			}
			if !has {
				rel := bytecode.ReadI32(code, ip+3)
				f.ip = int32(ip+3+4) + rel
			} else {
				vm.setReg(dst, v)
				f.ip += 7
			}

		case bytecode.OpYield:
			val := vm.reg(code[ip+1])
			f.ip += 2
			return val, false, nil

		case bytecode.OpTryBegin:
			rel := bytecode.ReadI32(code, ip+1)
			target := int32(ip+1+4) + rel
			catchReg := code[ip+5]
			f.catch = append(f.catch, catchEntry{target: target, reg: catchReg})
			f.ip += 6

		case bytecode.OpTryEnd:
			if n := len(f.catch); n > 0 {
				f.catch = f.catch[:n-1]
			}
			f.ip++

		case bytecode.OpThrow:
			v := vm.reg(code[ip+1])
			f.ip += 2
			err := vm.raiseThrow(span, v)
			if vm.unwind(err) {
				continue
			}
			return value.Null, true, err

		case bytecode.OpGetGlobal:
			dst := code[ip+1]
			name := f.proto.Constants.Get(ast.ConstIndex(bytecode.ReadU24(code, ip+2))).Str
			f.ip += 5
			v, ok := vm.globals[name]
			if !ok {
				err := vm.runtimeErrf(span, "undefined name: %s", name)
				if vm.unwind(err) {
					continue
				}
				return value.Null, true, err
			}
			vm.setReg(dst, v)

		case bytecode.OpSetGlobal:
			name := f.proto.Constants.Get(ast.ConstIndex(bytecode.ReadU24(code, ip+1))).Str
			v := vm.reg(code[ip+4])
			vm.globals[name] = v
			if n := len(vm.exportTrack); n > 0 {
				vm.exportTrack[n-1][name] = true
			}
			f.ip += 5

		case bytecode.OpImport:
			dst := code[ip+1]
			path := f.proto.Constants.Get(ast.ConstIndex(bytecode.ReadU24(code, ip+2))).Str
			f.ip += 5
			chunk, _, err := vm.loader.CompileModule(path, f.proto.SourcePath)
			if err == nil {
				var mv value.Value
				mv, err = vm.runModule(chunk)
				if err == nil {
					vm.setReg(dst, mv)
				}
			}
			if err != nil {
				wrapped := vm.wrapErr(span, err)
				if vm.unwind(wrapped) {
					continue
				}
				return value.Null, true, wrapped
			}

		case bytecode.OpGetMeta:
			dst, obj := code[ip+1], vm.reg(code[ip+2])
			key := bytecode.MetaKey(code[ip+3])
			f.ip += 4
			result := value.Null
			if mm := value.MetaOf(obj); mm != nil {
				if v, ok := mm.Get(key); ok {
					result = v
				}
			}
			vm.setReg(dst, result)

		default:
			err := vm.runtimeErrf(span, "unknown opcode %v", op)
			if vm.unwind(err) {
				continue
			}
			return value.Null, true, err
		}
	}
	return value.Null, true, nil
}
