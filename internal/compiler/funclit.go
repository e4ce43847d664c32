package compiler

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/token"
)

// deferredParamBind is a composite (non-ident) parameter pattern whose
// destructure must run once the function's body starts, after the
// default-argument prologue has filled in any missing trailing values.
type deferredParamBind struct {
	pattern ast.Index
	reg     byte
}

// compileFuncLit compiles a KFuncLit into its own FuncProto, emits the
// enclosing frame's capture-materialization code, and writes the
// resulting closure into dst (spec §4.4 "register allocator ... closure
// capture analysis ... default-argument values").
//
// Extra layout: [variadicFlag, generatorFlag, paramPatternIdx0,
// paramDefaultIdx0, paramPatternIdx1, paramDefaultIdx1, ...]
func (fc *funcCompiler) compileFuncLit(a *ast.Ast, n *ast.Node, dst byte, span token.Span, name string) error {
	variadic := n.Extra[0] == 1
	generator := n.Extra[1] == 1
	rest := n.Extra[2:]
	numParams := len(rest) / 2

	child := &funcCompiler{
		compiler:     fc.compiler,
		parent:       fc,
		em:           &bytecode.Emitter{},
		captureIndex: map[string]int{},
	}

	params := make([]ast.Index, numParams)
	defaults := make([]ast.Index, numParams)
	for i := 0; i < numParams; i++ {
		params[i] = ast.Index(rest[2*i])
		defaults[i] = ast.Index(rest[2*i+1])
	}

	var deferred []deferredParamBind
	for i := 0; i < numParams; i++ {
		reg, err := child.alloc()
		if err != nil {
			return fc.errf(span, "%s", err)
		}
		pn := a.At(params[i])
		switch pn.Kind {
		case ast.KPatIdent:
			child.declareLocal(a.Constants.Get(ast.ConstIndex(pn.Extra[0])).Str, reg)
		case ast.KPatWildcard:
			// discarded
		case ast.KPatRest:
			if pn.Extra[0] != -1 {
				child.declareLocal(a.Constants.Get(ast.ConstIndex(pn.Extra[0])).Str, reg)
			}
		default:
			deferred = append(deferred, deferredParamBind{pattern: params[i], reg: reg})
		}
	}

	defaultsChunk := make([]int32, numParams)
	seenDefault := false
	for i := 0; i < numParams; i++ {
		defaultsChunk[i] = -1
		isRest := a.At(params[i]).Kind == ast.KPatRest
		if isRest {
			if defaults[i] != ast.NoIndex {
				return fc.errf(span, "a variadic parameter cannot have a default value")
			}
			if i != numParams-1 {
				return fc.errf(span, "the variadic parameter must be the last parameter")
			}
			continue
		}
		if defaults[i] != ast.NoIndex {
			seenDefault = true
		} else if seenDefault {
			return fc.errf(span, "a required parameter cannot follow a defaulted parameter")
		}
	}

	for i := 0; i < numParams; i++ {
		if defaults[i] == ast.NoIndex {
			continue
		}
		defaultsChunk[i] = int32(child.em.Here())
		if err := child.compileExprInto(a, defaults[i], byte(i)); err != nil {
			return err
		}
	}

	bodyStart := int32(child.em.Here())
	for _, db := range deferred {
		if err := child.compileIrrefutableBind(a, db.pattern, db.reg, false); err != nil {
			return err
		}
	}

	bodyBlock := n.Lhs
	retReg, err := child.allocCompile(a, bodyBlock)
	if err != nil {
		return err
	}
	child.em.Emit1(bytecode.OpReturn, retReg, a.Span(bodyBlock))

	proto := &bytecode.FuncProto{
		Name:          name,
		NumParams:     numParams,
		Variadic:      variadic,
		Generator:     generator,
		NumRegisters:  child.maxReg,
		NumCaptures:   len(child.captures),
		DefaultsChunk: defaultsChunk,
		BodyStart:     bodyStart,
		Code:          child.em.Code,
		Debug:         child.em.Debug,
		SourcePath:    fc.compiler.sourcePath,
		Constants:     a.Constants,
	}
	protoIdx := fc.compiler.addProto(proto)

	save := fc.nextReg
	first, count, err := fc.materializeCaptures(child, span)
	if err != nil {
		return err
	}
	fc.em.EmitMakeFunction(dst, protoIdx, count, first, span)
	fc.nextReg = save
	return nil
}

// materializeCaptures emits, in the enclosing frame fc, the contiguous
// block of registers a just-compiled child function's captures read
// from, copying from fc's own registers or (for a capture-of-a-capture)
// reading through fc's own OpGetCapture first.
func (fc *funcCompiler) materializeCaptures(child *funcCompiler, span token.Span) (first, count byte, err error) {
	if len(child.captures) == 0 {
		return 0, 0, nil
	}
	for i, cap := range child.captures {
		r, err := fc.alloc()
		if err != nil {
			return 0, 0, fc.errf(span, "%s", err)
		}
		if i == 0 {
			first = r
		}
		if cap.fromCapture {
			fc.em.EmitGetCapture(r, cap.idx, span)
		} else {
			fc.em.Emit2(bytecode.OpMove, r, cap.idx, span)
		}
	}
	count = byte(len(child.captures))
	return first, count, nil
}

// nameLastFunction labels the most recently added proto, used so a
// closure bound directly by `let f = || ...` carries a useful name in
// stack traces instead of showing up anonymous.
func (fc *funcCompiler) nameLastFunction(name string) {
	protos := fc.compiler.protos
	if len(protos) == 0 {
		return
	}
	p := protos[len(protos)-1]
	if p.Name == "" {
		p.Name = name
	}
}
