package libgl

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"envcube/libgfx"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

type program struct {
	glId             uint32
	key              libgfx.ProgramKey
	name             string
	log              *slog.Logger
	uniformLocations map[string]libgfx.UniformLocation
}

func (prog *program) Id() uint32 {
	return prog.glId
}

func (prog *program) Key() libgfx.ProgramKey {
	return prog.key
}

func (prog *program) UniformLocation(name string) libgfx.UniformLocation {
	if location, ok := prog.uniformLocations[name]; ok {
		return location
	}

	location := libgfx.UniformLocation(gl.GetUniformLocation(prog.glId, gl.Str(name+"\x00")))
	if location < 0 {
		location = libgfx.Absent
		prog.log.Debug("could not get uniform location", "program", prog.name, "uniform", name)
	}
	prog.uniformLocations[name] = location
	return location
}

func (prog *program) UniformBlockIndex(name string) (uint32, bool) {
	index := gl.GetUniformBlockIndex(prog.glId, gl.Str(name+"\x00"))
	return index, index != gl.INVALID_INDEX
}

func compileShader(source string, stage uint32) (uint32, error) {
	id := gl.CreateShader(stage)
	cStrs, free := gl.Strs(source + "\x00")
	gl.ShaderSource(id, 1, cStrs, nil)
	free()
	gl.CompileShader(id)

	var ok int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &ok)
	if ok == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteShader(id)
		return 0, fmt.Errorf("%s", strings.TrimRight(log, "\x00"))
	}
	return id, nil
}

func linkProgram(src libgfx.ProgramSource, log *slog.Logger) (*program, error) {
	vsh, err := compileShader(src.Vertex, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %v vertex shader, log: %w", src.Name, err)
	}
	defer gl.DeleteShader(vsh)
	fsh, err := compileShader(src.Fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %v fragment shader, log: %w", src.Name, err)
	}
	defer gl.DeleteShader(fsh)

	id := gl.CreateProgram()
	gl.AttachShader(id, vsh)
	gl.AttachShader(id, fsh)
	gl.LinkProgram(id)
	gl.DetachShader(id, vsh)
	gl.DetachShader(id, fsh)

	var ok int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &ok)
	if ok == gl.FALSE {
		defer gl.DeleteProgram(id)
		return nil, fmt.Errorf("failed to link %v shader, log: %v", src.Name, readProgramInfoLog(id))
	}
	setObjectLabel(gl.PROGRAM, id, src.Name)

	return &program{
		glId:             id,
		key:              src.Key(),
		name:             src.Name,
		log:              log,
		uniformLocations: map[string]libgfx.UniformLocation{},
	}, nil
}

func readProgramInfoLog(id uint32) string {
	var logLength int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)

	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func setProgramUniformAny(prog uint32, location int32, value any) error {
	for refVal := reflect.ValueOf(value); refVal.Kind() == reflect.Ptr; refVal = reflect.ValueOf(value) {
		value = refVal.Elem().Interface()
	}

	switch v := value.(type) {
	case bool:
		var i int32
		if v {
			i = 1
		}
		gl.ProgramUniform1i(prog, location, i)
	case float64:
		gl.ProgramUniform1d(prog, location, v)
	case float32:
		gl.ProgramUniform1f(prog, location, v)
	case int:
		gl.ProgramUniform1i(prog, location, int32(v))
	case int64:
		gl.ProgramUniform1i(prog, location, int32(v))
	case int32:
		gl.ProgramUniform1i(prog, location, v)
	case uint:
		gl.ProgramUniform1ui(prog, location, uint32(v))
	case uint32:
		gl.ProgramUniform1ui(prog, location, v)
	case mgl32.Vec2:
		gl.ProgramUniform2f(prog, location, v.X(), v.Y())
	case mgl32.Vec3:
		gl.ProgramUniform3f(prog, location, v.X(), v.Y(), v.Z())
	case mgl64.Vec3:
		gl.ProgramUniform3d(prog, location, v.X(), v.Y(), v.Z())
	case mgl32.Vec4:
		gl.ProgramUniform4f(prog, location, v.X(), v.Y(), v.Z(), v.W())
	case mgl32.Mat3:
		gl.ProgramUniformMatrix3fv(prog, location, 1, false, &v[0])
	case mgl32.Mat4:
		gl.ProgramUniformMatrix4fv(prog, location, 1, false, &v[0])
	case mgl64.Mat4:
		gl.ProgramUniformMatrix4dv(prog, location, 1, false, &v[0])
	default:
		return fmt.Errorf("unsupported uniform type %T", value)
	}
	return nil
}
