package postfx

// commonHeader is prepended to every effect's fragment shader: the
// PPUniforms binding, the shared texture/sampler bindings, and a
// full-screen-triangle vertex stage.
const commonHeader = `
struct PPUniforms {
    resolution: vec2<f32>,
    time: f32,
    intensity: f32,
};

@group(0) @binding(0) var<uniform> pp: PPUniforms;
@group(0) @binding(1) var input_tex: texture_2d<f32>;
@group(0) @binding(2) var input_sampler: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) vertex_index: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32(i32(vertex_index) / 2) * 4.0 - 1.0;
    let y = f32(i32(vertex_index) % 2) * 4.0 - 1.0;
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>((x + 1.0) * 0.5, (1.0 - y) * 0.5);
    return out;
}
`

var effectFragmentSources = map[string]string{
	"bloom": `
fn luminance(c: vec3<f32>) -> f32 {
    return dot(c, vec3<f32>(0.2126, 0.7152, 0.0722));
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let texel_size = 1.0 / pp.resolution;
    var color = textureSample(input_tex, input_sampler, in.uv).rgb;

    var bloom_color = vec3<f32>(0.0);
    let radius = 4;
    var total_weight = 0.0;

    for (var x = -radius; x <= radius; x++) {
        for (var y = -radius; y <= radius; y++) {
            let offset = vec2<f32>(f32(x), f32(y)) * texel_size * 2.0;
            let sample_color = textureSample(input_tex, input_sampler, in.uv + offset).rgb;
            let lum = luminance(sample_color);
            let threshold = 0.6;
            if lum > threshold {
                let w = 1.0 / (1.0 + f32(x * x + y * y));
                bloom_color += sample_color * w;
                total_weight += w;
            }
        }
    }

    if total_weight > 0.0 {
        bloom_color /= total_weight;
    }

    color += bloom_color * 0.4 * pp.intensity;
    return vec4<f32>(color, 1.0);
}
`,
	"chromatic_aberration": `
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let center = vec2<f32>(0.5, 0.5);
    let dir = in.uv - center;
    let dist = length(dir);
    let offset = dir * dist * 0.008 * pp.intensity;

    let r = textureSample(input_tex, input_sampler, in.uv + offset).r;
    let g = textureSample(input_tex, input_sampler, in.uv).g;
    let b = textureSample(input_tex, input_sampler, in.uv - offset).b;

    return vec4<f32>(r, g, b, 1.0);
}
`,
	"vignette": `
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    var color = textureSample(input_tex, input_sampler, in.uv).rgb;

    let center = vec2<f32>(0.5, 0.5);
    let dist = distance(in.uv, center) * 1.4142;
    let vignette = 1.0 - smoothstep(0.4, 1.2, dist) * 0.7 * pp.intensity;
    color *= vignette;

    return vec4<f32>(color, 1.0);
}
`,
	"film_grain": `
fn hash(p: vec2<f32>) -> f32 {
    var p3 = fract(vec3<f32>(p.x, p.y, p.x) * 0.1031);
    p3 += dot(p3, vec3<f32>(p3.y + 33.33, p3.z + 33.33, p3.x + 33.33));
    return fract((p3.x + p3.y) * p3.z);
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    var color = textureSample(input_tex, input_sampler, in.uv).rgb;

    let noise = hash(in.uv * pp.resolution + vec2<f32>(pp.time * 1000.0, pp.time * 573.0));
    let grain = (noise - 0.5) * 0.08 * pp.intensity;
    color += vec3<f32>(grain);

    return vec4<f32>(color, 1.0);
}
`,
	"crt_scanlines": `
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let center = in.uv - vec2<f32>(0.5, 0.5);
    let dist2 = dot(center, center);
    let barrel = 0.15 * pp.intensity;
    let distorted_uv = in.uv + center * dist2 * barrel;

    if distorted_uv.x < 0.0 || distorted_uv.x > 1.0 || distorted_uv.y < 0.0 || distorted_uv.y > 1.0 {
        return vec4<f32>(0.0, 0.0, 0.0, 1.0);
    }

    var color = textureSample(input_tex, input_sampler, distorted_uv).rgb;

    let scanline_freq = pp.resolution.y * 0.5;
    let scanline = sin(distorted_uv.y * scanline_freq * 3.14159) * 0.5 + 0.5;
    let scanline_intensity = 0.15 * pp.intensity;
    color *= 1.0 - scanline_intensity * (1.0 - scanline);

    let pixel_pos = distorted_uv * pp.resolution;
    let dot = sin(pixel_pos.x * 3.14159 * 1.0) * 0.5 + 0.5;
    color *= 0.95 + 0.05 * dot;

    return vec4<f32>(color, 1.0);
}
`,
	"color_grading": `
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    var color = textureSample(input_tex, input_sampler, in.uv).rgb;

    let contrast = 1.15;
    color = (color - 0.5) * contrast + 0.5;

    color.r *= 1.02;
    color.b *= 0.98;

    let gray = dot(color, vec3<f32>(0.2126, 0.7152, 0.0722));
    let saturation = 1.1;
    color = mix(vec3<f32>(gray), color, saturation);

    color = clamp(color, vec3<f32>(0.0), vec3<f32>(1.0));

    return vec4<f32>(color, 1.0);
}
`,
}

// EffectNames is the closed set of valid post-process effect names.
var EffectNames = []string{"bloom", "chromatic_aberration", "vignette", "film_grain", "crt_scanlines", "color_grading"}

// crtPreset is the ordered expansion of the "crt" preset name.
var crtPreset = []string{"crt_scanlines", "chromatic_aberration", "vignette", "film_grain", "color_grading"}

// ExpandEffects expands preset names ("none", "crt") in an ordered
// effect list, leaving individual effect names untouched.
func ExpandEffects(names []string) []string {
	var out []string
	for _, n := range names {
		switch n {
		case "none":
			return nil
		case "crt":
			out = append(out, crtPreset...)
		default:
			out = append(out, n)
		}
	}
	return out
}

func shaderSource(name string) (string, bool) {
	frag, ok := effectFragmentSources[name]
	if !ok {
		return "", false
	}
	return commonHeader + frag, true
}
