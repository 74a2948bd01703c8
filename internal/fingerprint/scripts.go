package fingerprint

import "fmt"

// Vendor and renderer pools for the WebGL override. Pairs are picked
// independently, matching the variety seen on real hardware surveys.
var (
	webglVendors = []string{
		"Intel Inc.",
		"NVIDIA Corporation",
		"AMD",
		"Qualcomm",
		"ARM",
	}
	webglRenderers = []string{
		"Intel Iris OpenGL Engine",
		"Intel HD Graphics 620",
		"NVIDIA GeForce GTX 1050",
		"AMD Radeon Pro 560",
		"Mesa DRI Intel(R) HD Graphics",
	}

	hardwareCores  = []int{2, 4, 6, 8, 12, 16}
	hardwareMemory = []int{2, 4, 8, 16, 32}
)

// canvasScript perturbs canvas readback by up to +-noise/2 per RGB channel,
// defeating canvas hashing without visibly distorting the page.
func canvasScript(noise float64) string {
	return fmt.Sprintf(`(() => {
  const noise = %g;
  const shift = () => (Math.random() - 0.5) * noise * 255;
  const origGetImageData = CanvasRenderingContext2D.prototype.getImageData;
  CanvasRenderingContext2D.prototype.getImageData = function () {
    const imageData = origGetImageData.apply(this, arguments);
    const data = imageData.data;
    for (let i = 0; i < data.length; i += 4) {
      data[i] = Math.min(255, Math.max(0, data[i] + shift()));
      data[i + 1] = Math.min(255, Math.max(0, data[i + 1] + shift()));
      data[i + 2] = Math.min(255, Math.max(0, data[i + 2] + shift()));
    }
    return imageData;
  };
  const origToDataURL = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function () {
    const ctx = this.getContext('2d');
    if (ctx && this.width > 0 && this.height > 0) {
      const imageData = origGetImageData.call(ctx, 0, 0, this.width, this.height);
      const data = imageData.data;
      for (let i = 0; i < data.length; i += 4) {
        data[i] = Math.min(255, Math.max(0, data[i] + shift()));
      }
      ctx.putImageData(imageData, 0, 0);
    }
    return origToDataURL.apply(this, arguments);
  };
})();`, noise)
}

// webglScript overrides the unmasked vendor and renderer parameters
// (UNMASKED_VENDOR_WEBGL 37445, UNMASKED_RENDERER_WEBGL 37446).
func webglScript(vendor, renderer string) string {
	return fmt.Sprintf(`(() => {
  const vendor = %q;
  const renderer = %q;
  const patch = (proto) => {
    if (!proto) { return; }
    const orig = proto.getParameter;
    proto.getParameter = function (parameter) {
      if (parameter === 37445) { return vendor; }
      if (parameter === 37446) { return renderer; }
      return orig.apply(this, arguments);
    };
  };
  patch(window.WebGLRenderingContext && WebGLRenderingContext.prototype);
  patch(window.WebGL2RenderingContext && WebGL2RenderingContext.prototype);
})();`, vendor, renderer)
}

// audioScript skews the audio fingerprint at the graph level: oscillator
// output is routed through a gain node just under unity, and compressor
// thresholds are offset by an independent amount. Both perturbations are
// far below audibility but shift the rendered sample hash.
func audioScript(oscillatorNoise, dynamicsNoise float64) string {
	return fmt.Sprintf(`(() => {
  const AudioContext = window.AudioContext || window.webkitAudioContext;
  if (!AudioContext) { return; }
  const origCreateOscillator = AudioContext.prototype.createOscillator;
  AudioContext.prototype.createOscillator = function () {
    const oscillator = origCreateOscillator.apply(this, arguments);
    const origConnect = oscillator.connect;
    oscillator.connect = function () {
      const gainNode = this.context.createGain();
      gainNode.gain.value = 1 - %.6f;
      origConnect.call(this, gainNode);
      return gainNode.connect.apply(gainNode, arguments);
    };
    return oscillator;
  };
  const origCreateDynamicsCompressor = AudioContext.prototype.createDynamicsCompressor;
  AudioContext.prototype.createDynamicsCompressor = function () {
    const compressor = origCreateDynamicsCompressor.apply(this, arguments);
    compressor.threshold.value += %.6f;
    return compressor;
  };
})();`, oscillatorNoise, dynamicsNoise)
}

// fontScript skews text measurement by a small pixel offset, perturbing
// font enumeration via width probing.
func fontScript(offset int) string {
	return fmt.Sprintf(`(() => {
  const offset = %d;
  const descW = Object.getOwnPropertyDescriptor(HTMLElement.prototype, 'offsetWidth');
  const descH = Object.getOwnPropertyDescriptor(HTMLElement.prototype, 'offsetHeight');
  if (!descW || !descH) { return; }
  Object.defineProperty(HTMLElement.prototype, 'offsetWidth', {
    get() {
      const w = descW.get.apply(this);
      return w > 0 ? w + offset : w;
    },
  });
  Object.defineProperty(HTMLElement.prototype, 'offsetHeight', {
    get() {
      const h = descH.get.apply(this);
      return h > 0 ? h + offset : h;
    },
  });
})();`, offset)
}

// batteryScript fakes the Battery Status API with a coherent state: a
// charging battery has a finite time to full and no discharge estimate,
// a discharging one the inverse.
func batteryScript(level float64, charging bool, chargingTime, dischargingTime int64) string {
	return fmt.Sprintf(`(() => {
  if (!navigator.getBattery) { return; }
  navigator.getBattery = () => Promise.resolve({
    level: %g,
    charging: %t,
    chargingTime: %d,
    dischargingTime: %d,
    addEventListener: () => {},
    removeEventListener: () => {},
    dispatchEvent: () => true,
  });
})();`, level, charging, chargingTime, dischargingTime)
}

// hardwareScript overrides the reported core count and device memory.
func hardwareScript(cores, memory int) string {
	return fmt.Sprintf(`(() => {
  Object.defineProperty(Object.getPrototypeOf(navigator), 'hardwareConcurrency', {
    get: () => %d,
    configurable: true,
  });
  Object.defineProperty(Object.getPrototypeOf(navigator), 'deviceMemory', {
    get: () => %d,
    configurable: true,
  });
})();`, cores, memory)
}
